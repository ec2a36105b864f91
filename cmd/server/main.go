package main

import (
	"flag"
	"fmt"

	"scramble-service/internal/api"
	"scramble-service/internal/board"
	"scramble-service/internal/config"
	"scramble-service/internal/repo"
	"scramble-service/internal/service"
	"scramble-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	config.LoadConfig(configPath)

	// 2. Init Logger
	logger.InitLogger(config.GlobalConfig.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Starting server...", zap.String("mode", config.GlobalConfig.Server.Mode))

	// 3. Load Board
	b, err := board.ParseFile(config.GlobalConfig.Board.File)
	if err != nil {
		logger.Log.Fatal("failed to load board", zap.Error(err))
	}
	if config.GlobalConfig.Game.CheckRep {
		b.EnableCheckRep()
	}
	logger.Log.Info("Board loaded",
		zap.String("file", config.GlobalConfig.Board.File),
		zap.Int("rows", b.Rows()),
		zap.Int("cols", b.Cols()),
	)

	// 4. Init optional stores
	repo.InitDB()
	repo.InitRedis()

	// 5. Init Services
	services := service.NewContainer(b, repo.DB, repo.RDB)

	// 6. Init Router
	if config.GlobalConfig.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	api.RegisterRoutes(r, services)

	// 7. Start Server
	addr := fmt.Sprintf(":%s", config.GlobalConfig.Server.Port)
	logger.Log.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
