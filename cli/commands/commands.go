// Package commands implements the cobra commands of the openfill CLI. Each
// command marshals flags into a JSON-RPC request and prints the raw result.
package commands

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openfill/openfill/daemon/types"
)

// intentFlags collects the flag values shared by resolve and open.
type intentFlags struct {
	user         string
	nonce        uint64
	chainID      uint64
	openDeadline int64
	fillDeadline int64
	settler      string
	orderType    string
	orderData    string
	onchain      bool
}

func (f *intentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "user address (0x...)")
	cmd.Flags().Uint64Var(&f.nonce, "nonce", 0, "replay-protection nonce, gasless only")
	cmd.Flags().Uint64Var(&f.chainID, "chain-id", 0, "origin chain id, gasless only")
	cmd.Flags().Int64Var(&f.openDeadline, "open-deadline", 0, "unix open deadline, gasless only")
	cmd.Flags().Int64Var(&f.fillDeadline, "fill-deadline", 0, "unix fill deadline")
	cmd.Flags().StringVar(&f.settler, "settler", "", "origin settler address, gasless only")
	cmd.Flags().StringVar(&f.orderType, "order-type", "", "schema type id (0x...)")
	cmd.Flags().StringVar(&f.orderData, "order-data", "", "hex-encoded sub-type payload")
	cmd.Flags().BoolVar(&f.onchain, "onchain", false, "submit as a self-submitted intent")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("fill-deadline")
	cmd.MarkFlagRequired("order-type")
	cmd.MarkFlagRequired("order-data")
}

func (f *intentFlags) request() (types.RequestResolve, error) {
	orderData, err := hexutil.Decode(f.orderData)
	if err != nil {
		return types.RequestResolve{}, err
	}

	if f.onchain {
		return types.RequestResolve{
			Onchain: &types.OnchainOrder{
				User:         common.HexToAddress(f.user),
				FillDeadline: f.fillDeadline,
				OrderType:    common.HexToHash(f.orderType),
				OrderData:    orderData,
			},
		}, nil
	}
	return types.RequestResolve{
		Gasless: &types.GaslessOrder{
			User:          common.HexToAddress(f.user),
			Nonce:         f.nonce,
			OriginChainID: (*hexutil.Big)(new(big.Int).SetUint64(f.chainID)),
			OpenDeadline:  f.openDeadline,
			FillDeadline:  f.fillDeadline,
			OriginSettler: common.HexToAddress(f.settler),
			OrderType:     common.HexToHash(f.orderType),
			OrderData:     orderData,
		},
	}, nil
}

func printResult(result json.RawMessage) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		color.Green("%s", result)
		return
	}
	color.Green("%s", pretty.String())
}
