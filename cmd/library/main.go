package main

import (
	stdLog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/librarydesk/library-service/library/app"
	"github.com/librarydesk/library-service/library/config"
)

//	@title			Library circulation API
//	@version		1.0
//	@description	Catalog, members and the loan desk.
//	@BasePath		/api/v1

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env ", err)
	}
	cfg := config.NewConfig(
		config.WithLogLevel(zapcore.DebugLevel),
		config.WithWriteTimeout(time.Minute),
	)

	app.Run(cfg)
}
