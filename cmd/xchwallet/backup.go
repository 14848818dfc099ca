package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/backup"
	"github.com/urfave/cli/v2"
)

var (
	bucketFlag = cli.StringFlag{
		Name:    "bucket",
		Usage:   "S3 bucket to upload the backup to, the archive is kept locally if not set",
		EnvVars: []string{"S3_BUCKET_NAME"},
	}
	regionFlag = cli.StringFlag{
		Name:    "region",
		Usage:   "AWS region of the bucket",
		EnvVars: []string{"AWS_REGION"},
	}
	outputFlag = cli.StringFlag{
		Name:  "output",
		Usage: "directory where the archive is written",
		Value: ".",
	}
)

var backupCommand = cli.Command{
	Name:  "backup",
	Usage: "Archives the wallet data directory and optionally uploads it to S3",
	Action: func(ctx *cli.Context) error {
		return backupDatadir(ctx)
	},
	Flags: []cli.Flag{&bucketFlag, &regionFlag, &outputFlag},
}

func backupDatadir(ctx *cli.Context) error {
	bucket := ctx.String(bucketFlag.Name)
	outDir := cleanAndExpandPath(ctx.String(outputFlag.Name))
	path := filepath.Join(outDir, backup.FileName(time.Now()))

	if err := backup.ArchiveToFile(ctx.Context, cfg.Datadir, path); err != nil {
		return err
	}
	if bucket == "" {
		return printJSON(map[string]interface{}{
			"archive": path,
		})
	}

	uploader, err := backup.NewS3Uploader(ctx.Context, bucket, ctx.String(regionFlag.Name))
	if err != nil {
		return err
	}
	location, err := uploader.Upload(ctx.Context, path)
	if err != nil {
		return fmt.Errorf("archive %s created but not uploaded: %w", path, err)
	}
	os.Remove(path)

	return printJSON(map[string]interface{}{
		"archive": location,
	})
}
