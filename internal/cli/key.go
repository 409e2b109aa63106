package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"affiliate-studio/internal/credential"
)

func newKeyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the Gemini API key",
		Long: `A manually entered key takes precedence over GEMINI_API_KEY, which takes
precedence over the key file picker (GEMINI_API_KEY_FILE).`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which key is in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			printKeyState(cmd.OutOrStdout(), a.Studio.KeyState())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <api-key>",
		Short: "Save a manual key on this machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Studio.SetKey(args[0]); err != nil {
				return present(a, err)
			}
			printKeyState(cmd.OutOrStdout(), a.Studio.KeyState())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the manual key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Studio.ClearKey(); err != nil {
				return present(a, err)
			}
			printKeyState(cmd.OutOrStdout(), a.Studio.KeyState())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pick",
		Short: "Re-read the key file picker",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Studio.OpenKeyPicker(cmd.Context())
			if err != nil {
				return present(a, err)
			}
			printKeyState(cmd.OutOrStdout(), st)
			return nil
		},
	})

	return cmd
}

func printKeyState(w io.Writer, st credential.State) {
	if !st.Connected {
		fmt.Fprintln(w, "Not connected")
		return
	}
	fmt.Fprintf(w, "Connected (%s) %s\n", st.Source, st.Masked)
}
