package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tichu-service/internal/config"
	"tichu-service/internal/repo"
	"tichu-service/internal/service/auth"
	"tichu-service/pkg/logger"

	"go.uber.org/zap"
)

// Prints a fresh access code for each team id given on the command line.
func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: accesscode [-config path] <teamID>...")
		os.Exit(2)
	}

	config.LoadConfig(configPath)
	logger.InitLogger(config.GlobalConfig.Server.Mode)
	defer logger.Log.Sync()

	repo.InitDB()
	defer repo.CloseDB()
	repo.InitRedis()
	defer repo.CloseRedis()

	svc := auth.NewService(repo.DB, repo.RDB)

	failed := false
	for _, arg := range flag.Args() {
		var teamID int64
		if _, err := fmt.Sscan(arg, &teamID); err != nil || teamID <= 0 {
			logger.Log.Error("invalid team id", zap.String("arg", arg))
			failed = true
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		code, err := svc.ResetAccessCode(ctx, teamID)
		cancel()
		if err != nil {
			logger.Log.Error("reset access code failed", zap.Int64("teamID", teamID), zap.Error(err))
			failed = true
			continue
		}
		fmt.Printf("%d\t%s\n", teamID, code)
	}

	if failed {
		logger.Log.Sync()
		os.Exit(1)
	}
}
