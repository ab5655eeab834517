package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

var processRebuild bool

var processCmd = &cobra.Command{
	Use:   "process [file]...",
	Short: "Add files to your knowledge",
	Long: `Extract text from the given files, chunk it and add it to the stored
knowledge of --user. Existing knowledge is kept; only the new files are embedded.

With --rebuild the index is first rebuilt from every stored file, replacing
one that can no longer be loaded (for example after switching embedding
models). Files given alongside --rebuild are added afterwards.

Supported formats: pdf, docx, xlsx, txt, csv, md, html, eml.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if processRebuild {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processRebuild, "rebuild", false, "rebuild the index from all stored files")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	scope, err := durableScope(cmd)
	if err != nil {
		return err
	}

	blobs, err := readBlobs(args)
	if err != nil {
		return err
	}

	if processRebuild {
		rebuilt, err := knowledgeService.Reprocess(cmd.Context(), scope)
		if err != nil {
			return err
		}
		printReports(cmd, rebuilt.Files)
		cmd.Printf("Rebuilt knowledge from %d stored file(s): %d entries\n",
			len(rebuilt.Files), rebuilt.Entries)
		if len(blobs) == 0 {
			return nil
		}
	}

	result, err := knowledgeService.ProcessFiles(cmd.Context(), scope, blobs)
	if result != nil {
		printReports(cmd, result.Files)
	}
	if err != nil {
		return err
	}

	cmd.Printf("Processed %d file(s): %d new chunks, %d entries in knowledge\n",
		len(blobs), result.Chunks, result.Entries)
	return nil
}

// readBlobs loads each path into a blob named after its base name.
func readBlobs(paths []string) ([]domain.DocumentBlob, error) {
	blobs := make([]domain.DocumentBlob, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		blobs = append(blobs, domain.DocumentBlob{Name: filepath.Base(p), Content: data})
	}
	return blobs, nil
}
