// Package cli is the command line front end talking to a running daemon over
// its JSON-RPC endpoint.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/openfill/openfill/cli/commands"
	"github.com/openfill/openfill/rpcclient"
	"github.com/openfill/openfill/utils"
)

func Run(version string) error {
	var cmd = &cobra.Command{
		Use: "openfill - cross-chain intent order tool",
		Run: func(c *cobra.Command, args []string) {
			c.HelpFunc()(c, args)
		},
		Version:           version,
		DisableAutoGenTag: true,
	}

	envConfig := utils.LoadConfigFromFile(utils.DefaultConfigPath())
	if envConfig.RPCServer == "" {
		envConfig.RPCServer = "localhost:8080"
	}

	rpcClient := rpcclient.NewClient(envConfig.RpcUserName, envConfig.RpcPassword, "http", envConfig.RPCServer)

	cmd.AddCommand(commands.Resolve(rpcClient))
	cmd.AddCommand(commands.Open(rpcClient))
	cmd.AddCommand(commands.Fill(rpcClient))
	cmd.AddCommand(commands.Get(rpcClient))
	cmd.AddCommand(commands.List(rpcClient))
	cmd.AddCommand(commands.Settle(rpcClient))
	cmd.AddCommand(commands.Expire(rpcClient))
	cmd.AddCommand(commands.Status(rpcClient))
	return cmd.Execute()
}
