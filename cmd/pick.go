package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/AnyUserName/jpeg2png/internal/pipeline"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var pickCmd = &cobra.Command{
	Use:   "pick [dir]",
	Short: "Choose a JPEG interactively and convert it",
	Long: `Opens a file picker rooted at dir (default: the working directory) that
only offers JPEG files, then converts the chosen file with the same
settings and output as convert.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPick,
}

func init() {
	addConvertFlags(pickCmd)
	rootCmd.AddCommand(pickCmd)
}

var errNothingPicked = errors.New("no file selected")

func runPick(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	cfg, logger, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	path, err := pickJPEG(dir)
	if err != nil {
		return err
	}
	logger.Debug("picked", "path", path)

	return convertPaths(cmd, cfg, logger, []string{path})
}

func pickJPEG(dir string) (string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("inspect stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 {
		return "", fmt.Errorf("interactive picking requires a terminal; use convert instead")
	}

	var path string
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewFilePicker().
				Title("Select a JPEG to convert").
				Description("Arrows to move, enter to open or select, esc to go up.").
				CurrentDirectory(dir).
				AllowedTypes(pipeline.JPEGExtensions()).
				FileAllowed(true).
				DirAllowed(false).
				Picking(true).
				Value(&path),
		),
	).Run()
	if err != nil {
		return "", fmt.Errorf("run file picker: %w", err)
	}
	if path == "" {
		return "", errNothingPicked
	}
	return path, nil
}
