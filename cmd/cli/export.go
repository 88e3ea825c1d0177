package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/akeren/waitlist-api/config"
	"github.com/akeren/waitlist-api/domain/waitlist"
	"github.com/akeren/waitlist-api/internal/log"
	"github.com/akeren/waitlist-api/pkg/utils"
	flag "github.com/spf13/pflag"
)

const exportTimestampLayout = "20060102T150405Z"

func runExport(logger *log.Logger, args []string) error {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	output := flags.StringP("output", "o", "", "write the CSV to this file instead of stdout")
	toS3 := flags.Bool("s3", false, "upload the CSV to S3_EXPORT_BUCKET")
	timeout := flags.Duration("timeout", time.Minute, "overall export deadline")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := config.NewDatabase(logger, nil)
	if err != nil {
		return fmt.Errorf("connect to database for export: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	storeTimeout := utils.GetEnvPositiveDuration("STORE_TIMEOUT", *timeout)
	service := waitlist.NewWaitlistServiceFactory(db, logger, waitlist.WithStoreTimeout(storeTimeout)).CreateService()

	content, err := service.ExportCSV(ctx)
	if err != nil {
		return fmt.Errorf("export waitlist: %w", err)
	}

	if *toS3 {
		return uploadExport(ctx, logger, content, time.Now().UTC())
	}

	if *output == "" {
		return writeExport(os.Stdout, content)
	}

	file, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create %s: %w", *output, err)
	}
	if err := writeExport(file, content); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", *output, err)
	}

	logger.Info("Waitlist exported", "path", *output, "bytes", len(content))
	return nil
}

func writeExport(w io.Writer, content []byte) error {
	_, err := w.Write(content)
	return err
}

func uploadExport(ctx context.Context, logger *log.Logger, content []byte, now time.Time) error {
	s3Config := config.NewS3Config()
	if !s3Config.IsConfigured() {
		return config.ErrS3NotConfigured
	}

	client, err := s3Config.NewClient(ctx)
	if err != nil {
		return err
	}

	uri, err := config.NewExportUploader(client, s3Config).Upload(ctx, exportObjectName(now), waitlist.ExportContentType, content)
	if err != nil {
		return err
	}

	logger.Info("Waitlist exported", "uri", uri, "bytes", len(content))
	return nil
}

func exportObjectName(now time.Time) string {
	return fmt.Sprintf("waitlist-%s.csv", now.UTC().Format(exportTimestampLayout))
}
