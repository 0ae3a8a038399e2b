package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alan-zero/tokenizers/logutil"
	"github.com/alan-zero/tokenizers/tokenizer"
)

func loadTokenizer(cmd *cobra.Command) (*tokenizer.Tokenizer, error) {
	path, _ := cmd.Flags().GetString("tokenizer")
	if path == "" {
		return nil, fmt.Errorf("--tokenizer is required")
	}

	t := tokenizer.New()
	if err := t.Load(path); err != nil {
		return nil, err
	}
	return t, nil
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tokenize",
		Short:         "Encode and decode text with a byte-level BPE tokenizer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = logutil.LevelTrace
			}
			slog.SetDefault(logutil.NewLogger(os.Stderr, level))
		},
	}
	rootCmd.PersistentFlags().String("tokenizer", "", "path to tokenizer.json or a directory containing it")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable trace logging")

	encodeCmd := &cobra.Command{
		Use:   "encode TEXT",
		Short: "Convert text to token ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTokenizer(cmd)
			if err != nil {
				return err
			}

			bos, _ := cmd.Flags().GetInt("bos")
			eos, _ := cmd.Flags().GetInt("eos")
			ids, err := t.Encode(args[0], bos, eos)
			if err != nil {
				return err
			}

			out := make([]string, len(ids))
			for i, id := range ids {
				out[i] = strconv.FormatInt(int64(id), 10)
			}
			fmt.Println(strings.Join(out, " "))
			return nil
		},
	}
	encodeCmd.Flags().Int("bos", 0, "number of bos tokens to prepend")
	encodeCmd.Flags().Int("eos", 0, "number of eos tokens to append")

	decodeCmd := &cobra.Command{
		Use:   "decode ID...",
		Short: "Convert token ids back to text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTokenizer(cmd)
			if err != nil {
				return err
			}

			ids := make([]int32, len(args))
			for i, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid token id %q: %w", arg, err)
				}
				ids[i] = int32(id)
			}

			text, err := t.DecodeAll(ids)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show vocabulary size and special token ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTokenizer(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("vocab size: %d\n", t.VocabSize())
			fmt.Printf("bos: %d\n", t.BosTok())
			fmt.Printf("eos: %d\n", t.EosTok())
			return nil
		},
	}

	rootCmd.AddCommand(encodeCmd, decodeCmd, inspectCmd)
	return rootCmd
}

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
