package cmds

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/convogen/pkg/conversation"
	"github.com/go-go-golems/convogen/pkg/render"
)

func NewRenderCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <conversation.json> [<conversation.json>...]",
		Short: "Render conversation JSON files as markdown transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out *os.File
			if output == "" {
				out = os.Stdout
			} else {
				f, err := os.Create(output)
				if err != nil {
					return errors.Wrapf(err, "could not create %s", output)
				}
				defer func() {
					_ = f.Close()
				}()
				out = f
			}

			for i, path := range args {
				buf, err := os.ReadFile(path)
				if err != nil {
					return errors.Wrapf(err, "could not read %s", path)
				}
				var conv conversation.Conversation
				if err := json.Unmarshal(buf, &conv); err != nil {
					return errors.Wrapf(err, "could not parse %s", path)
				}
				transcript, err := render.Transcript(&conv)
				if err != nil {
					return errors.Wrapf(err, "could not render %s", path)
				}
				if i > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "---")
					fmt.Fprintln(out)
				}
				fmt.Fprint(out, transcript)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the transcript to a file instead of stdout")

	return cmd
}
