package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"lensd/internal/service"
	"lensd/pkg/types"
)

func newModelsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			svc, err := service.New(cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tRENAME")
			for _, m := range svc.ListModels() {
				fmt.Fprintf(tw, "%s\t%s\n", m.Name, formatRename(m.Rename))
			}
			return tw.Flush()
		},
	}
}

func formatRename(r map[string]string) string {
	if len(r) == 0 {
		return "-"
	}
	b, _ := json.Marshal(r)
	return string(b)
}

func newTokenizeCmd(o *options) *cobra.Command {
	var model string
	var chat bool
	cmd := &cobra.Command{
		Use:   "tokenize [text]",
		Short: "Print the tokens of text for a model",
		Long:  "Print the tokens of text for a model. With --chat the argument is a JSON list of {role, content} messages.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			svc, err := service.New(cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			req := types.TokenizeRequest{Text: types.PlainText(args[0]), Model: model}
			if chat {
				if err := json.Unmarshal([]byte(args[0]), &req.Text); err != nil {
					return fmt.Errorf("chat messages: %w", err)
				}
			}
			resp, err := svc.Tokenize(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model name")
	cmd.Flags().BoolVar(&chat, "chat", false, "Treat the argument as a JSON message list")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newLensCmd(o *options) *cobra.Command {
	var model, indices string
	cmd := &cobra.Command{
		Use:   "lens [prompt]",
		Short: "Run the logit lens for one prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			svc, err := service.New(cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			var idx []int
			for _, s := range splitCSV(indices) {
				var n int
				if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
					return fmt.Errorf("index %q: %w", s, err)
				}
				idx = append(idx, n)
			}
			resp, err := svc.Lens(cmd.Context(), types.LensRequest{Conversations: []types.Conversation{
				{Type: "base", Model: model, Prompt: args[0], SelectedTokenIndices: idx},
			}})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Model name")
	cmd.Flags().StringVar(&indices, "indices", "", "Comma-separated token positions, e.g. 0,3,7")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", strings.Repeat(" ", 2))
	return enc.Encode(v)
}
