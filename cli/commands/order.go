package commands

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/openfill/openfill/daemon/types"
	"github.com/openfill/openfill/rpcclient"
)

func Get(rpcClient rpcclient.Client) *cobra.Command {
	var orderId string
	var cmd = &cobra.Command{
		Use:   "order",
		Short: "Show one order's record",
		Run: func(c *cobra.Command, args []string) {
			resp, err := rpcClient.GetOrder(types.RequestOrder{OrderID: common.HexToHash(orderId)})
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
	cmd.Flags().StringVar(&orderId, "order-id", "", "order identifier (0x...)")
	cmd.MarkFlagRequired("order-id")
	return cmd
}

func List(rpcClient rpcclient.Client) *cobra.Command {
	var statuses []string
	var cmd = &cobra.Command{
		Use:   "list",
		Short: "List orders, optionally filtered by status",
		Run: func(c *cobra.Command, args []string) {
			resp, err := rpcClient.ListOrders(types.RequestListOrders{Statuses: statuses})
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "status filter, e.g. opened,filled")
	return cmd
}

func Status(rpcClient rpcclient.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's chain id and registered order sub-types",
		Run: func(c *cobra.Command, args []string) {
			resp, err := rpcClient.Status()
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
}

func Settle(rpcClient rpcclient.Client) *cobra.Command {
	var orderId string
	var cmd = &cobra.Command{
		Use:   "settle",
		Short: "Settle a fully filled order",
		Run: func(c *cobra.Command, args []string) {
			resp, err := rpcClient.SettleOrder(types.RequestOrder{OrderID: common.HexToHash(orderId)})
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
	cmd.Flags().StringVar(&orderId, "order-id", "", "order identifier (0x...)")
	cmd.MarkFlagRequired("order-id")
	return cmd
}

func Expire(rpcClient rpcclient.Client) *cobra.Command {
	var orderId string
	var cmd = &cobra.Command{
		Use:   "expire",
		Short: "Expire an order past its fill deadline and refund the user",
		Run: func(c *cobra.Command, args []string) {
			resp, err := rpcClient.ExpireOrder(types.RequestOrder{OrderID: common.HexToHash(orderId)})
			if err != nil {
				cobra.CheckErr(fmt.Errorf("failed to send request: %w", err))
			}
			printResult(resp)
		}}
	cmd.Flags().StringVar(&orderId, "order-id", "", "order identifier (0x...)")
	cmd.MarkFlagRequired("order-id")
	return cmd
}
