package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfill/openfill/rpcclient"
)

func Resolve(rpcClient rpcclient.Client) *cobra.Command {
	var flags intentFlags
	var cmd = &cobra.Command{
		Use:   "resolve",
		Short: "Preview an intent's resolved order without opening it",
		Run: func(c *cobra.Command, args []string) {
			req, err := flags.request()
			if err != nil {
				cobra.CheckErr(fmt.Errorf("invalid intent: %w", err))
			}

			resp, err := rpcClient.ResolveOrder(req)
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
	flags.register(cmd)
	return cmd
}
