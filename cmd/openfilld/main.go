package main

import (
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	jsonrpc "github.com/openfill/openfill/daemon/rpc"
	"github.com/openfill/openfill/pkg/engine"
	"github.com/openfill/openfill/utils"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	envConfig := utils.LoadConfigFromFile(utils.DefaultConfigPath())
	if user := os.Getenv("RPC_USER"); user != "" {
		envConfig.RpcUserName = user
	}
	if pass := os.Getenv("RPC_PASSWORD"); pass != "" {
		envConfig.RpcPassword = pass
	}
	if db := os.Getenv("DB"); db != "" {
		envConfig.DB = db
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		envConfig.Redis = redisURL
	}
	if server := os.Getenv("RPC_SERVER"); server != "" {
		envConfig.RPCServer = server
	}
	if envConfig.RPCServer == "" {
		envConfig.RPCServer = ":8080"
	}

	chainID := envConfig.ChainID
	if chainID == 0 {
		parsed, err := strconv.ParseUint(parseRequiredEnv("CHAIN_ID"), 10, 64)
		if err != nil {
			panic(fmt.Sprintf("invalid CHAIN_ID: %v", err))
		}
		chainID = parsed
	}

	eng, err := engine.New(engine.Config{
		OriginChainID: new(big.Int).SetUint64(chainID),
		Dialector:     utils.Dialector(envConfig.DB),
		RedisURL:      envConfig.Redis,
	}, nil, logger)
	if err != nil {
		panic(err)
	}
	if err := eng.Start(); err != nil {
		panic(err)
	}
	defer eng.Stop()

	server := jsonrpc.NewRpcServer(eng, envConfig.RpcUserName, envConfig.RpcPassword, logger.Named("rpc"))
	go func() {
		if err := server.Run(envConfig.RPCServer); err != nil {
			logger.Fatal("rpc server", zap.Error(err))
		}
	}()

	// waiting system signal
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}

func parseRequiredEnv(name string) string {
	val := os.Getenv(name)
	if val == "" {
		panic(fmt.Sprintf("env '%v' not set", name))
	}
	return val
}
