package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mrled/suns/dnsrenew/internal/lambdahandlers/renew"
	"github.com/mrled/suns/dnsrenew/internal/logger"
)

func main() {
	// Initialize logger
	log := logger.NewDefaultLogger()
	log = logger.WithExecutable(log, "lambda")
	logger.SetDefault(log)

	// LAMBDA_HANDLER is optional while there is a single handler
	handlerType := os.Getenv("LAMBDA_HANDLER")
	if handlerType == "" {
		handlerType = "renew"
	}

	log.Info("Starting Lambda handler", slog.String("handler", handlerType))

	switch handlerType {
	case "renew":
		handler, err := renew.NewHandler()
		if err != nil {
			log.Error("Failed to initialize renew handler", slog.String("error", err.Error()))
			os.Exit(1)
		}
		lambda.Start(handler.Handle)

	default:
		log.Error("Invalid LAMBDA_HANDLER value", slog.String("handler", handlerType))
		fmt.Fprintf(os.Stderr, "Error: Invalid LAMBDA_HANDLER value: %s\n", handlerType)
		fmt.Fprintln(os.Stderr, "Valid values: renew")
		os.Exit(1)
	}
}
