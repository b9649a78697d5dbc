package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/voternet/internal/client/client"
	"github.com/dmitrijs2005/voternet/internal/filex"
	"github.com/dmitrijs2005/voternet/internal/rpc"
)

// downloadCommand fetches the archived results document of a completed
// election through the presigned link the server hands out.
func (a *App) downloadCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <election-id>",
		Short: "Download the archived results document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.Call(cmd.Context(), rpc.ResultsArchiveURL, map[string]any{"electionId": args[0]})
			if err != nil {
				return err
			}
			url := resp.GetFields()["url"].GetStringValue()
			if url == "" {
				return client.ErrBadResponse
			}

			doc, err := a.download(cmd.Context(), url)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprintln(a.out, string(doc))
				return err
			}
			if err := filex.WriteFile(output, doc, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", output, len(doc))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
