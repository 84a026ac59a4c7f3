package commands

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/openfill/openfill/daemon/types"
	"github.com/openfill/openfill/rpcclient"
)

func Fill(rpcClient rpcclient.Client) *cobra.Command {
	var (
		orderId    string
		originData string
		filler     string
		fillerData string
	)
	var cmd = &cobra.Command{
		Use:   "fill",
		Short: "Report a destination-chain fill for one leg of an order",
		Run: func(c *cobra.Command, args []string) {
			data, err := hexutil.Decode(originData)
			if err != nil {
				cobra.CheckErr(fmt.Errorf("invalid origin data: %w", err))
			}
			req := types.RequestFill{
				OrderID:    common.HexToHash(orderId),
				OriginData: data,
				Filler:     common.HexToHash(filler),
			}
			if fillerData != "" {
				fd, err := hexutil.Decode(fillerData)
				if err != nil {
					cobra.CheckErr(fmt.Errorf("invalid filler data: %w", err))
				}
				req.FillerData = fd
			}

			resp, err := rpcClient.FillOrder(req)
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
	cmd.Flags().StringVar(&orderId, "order-id", "", "order identifier (0x...)")
	cmd.Flags().StringVar(&originData, "origin-data", "", "hex origin data of the filled leg")
	cmd.Flags().StringVar(&filler, "filler", "", "filler identity (32-byte hex)")
	cmd.Flags().StringVar(&fillerData, "filler-data", "", "optional hex attestation data")
	cmd.MarkFlagRequired("order-id")
	cmd.MarkFlagRequired("origin-data")
	cmd.MarkFlagRequired("filler")
	return cmd
}
