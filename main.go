package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mertd/kalori/internal/cred"
	"github.com/mertd/kalori/internal/estimate"
	"github.com/mertd/kalori/internal/ledger"
	"github.com/mertd/kalori/internal/store"
	"github.com/mertd/kalori/internal/tui"
)

func main() {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	credPath, err := cred.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	factory := func(ctx context.Context, apiKey string) (estimate.Estimator, error) {
		return estimate.New(ctx, apiKey)
	}

	ctrl := ledger.New(s, cred.NewFileStore(credPath), factory)

	app := tui.NewApp(ctrl)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
