package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/folio/internal/essay"
	"github.com/csheth/folio/internal/storage"
	"github.com/csheth/folio/internal/tui"
)

func main() {
	archiveDir := flag.String("archive", "essays", "directory of rendered essay HTML files")
	dataDir := flag.String("data", defaultDataDir(), "directory for preferences, history and highlights")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	noMouse := flag.Bool("no-mouse", false, "disable mouse support")
	flag.Parse()

	essays, err := essay.LoadDir(*archiveDir)
	if err != nil {
		fmt.Println("failed to load the essay archive:", err)
		os.Exit(1)
	}
	if len(essays) == 0 {
		fmt.Println("no essays found in", *archiveDir)
		os.Exit(1)
	}

	store, err := storage.NewFileStore(*dataDir)
	if err != nil {
		fmt.Println("failed to open the data directory:", err)
		os.Exit(1)
	}

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if !*noMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			DataDir: *dataDir,
			Store:   store,
			Essays:  essays,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "folio")
	}
	return ".folio"
}
