package commands

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/openfill/openfill/daemon/types"
	"github.com/openfill/openfill/rpcclient"
)

func Open(rpcClient rpcclient.Client) *cobra.Command {
	var (
		flags     intentFlags
		signature string
	)
	var cmd = &cobra.Command{
		Use:   "open",
		Short: "Open an order on the origin chain",
		Run: func(c *cobra.Command, args []string) {
			req, err := flags.request()
			if err != nil {
				cobra.CheckErr(fmt.Errorf("invalid intent: %w", err))
			}

			openReq := types.RequestOpen{RequestResolve: req}
			if signature != "" {
				sig, err := hexutil.Decode(signature)
				if err != nil {
					cobra.CheckErr(fmt.Errorf("invalid signature: %w", err))
				}
				openReq.Signature = sig
			}

			resp, err := rpcClient.OpenOrder(openReq)
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
	flags.register(cmd)
	cmd.Flags().StringVar(&signature, "signature", "", "user signature for a delegated open (0x...)")
	return cmd
}
