package cmd

import (
	"fmt"

	"networked/push"

	"github.com/spf13/cobra"
)

var vapidCmd = &cobra.Command{
	Use:   "vapid",
	Short: "Generate a VAPID key pair for web push",
	RunE: func(cmd *cobra.Command, _ []string) error {
		publicKey, privateKey, err := push.GenerateKeys()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Add these to your .env file:")
		fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", publicKey)
		fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", privateKey)
		fmt.Fprintln(out, "VAPID_SUBJECT=mailto:you@example.com")
		return nil
	},
}
