package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	linkedinCompany  string
	linkedinContacts bool
)

var linkedinCmd = &cobra.Command{
	Use:   "linkedin",
	Short: "Resolve a company's LinkedIn page and contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("linkedin"); err != nil {
			return err
		}
		c, err := newClients(ctx)
		if err != nil {
			return err
		}
		resolver, err := newLinkedIn(c)
		if err != nil {
			return err
		}

		result, err := resolver.Resolve(ctx, linkedinCompany, linkedinContacts)
		if err != nil {
			return eris.Wrap(err, "linkedin")
		}
		return printJSON(os.Stdout, result)
	},
}

func init() {
	linkedinCmd.Flags().StringVar(&linkedinCompany, "company", "", "company name (required)")
	linkedinCmd.Flags().BoolVar(&linkedinContacts, "contacts", false, "also collect decision-maker profiles")
	_ = linkedinCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(linkedinCmd)
}
