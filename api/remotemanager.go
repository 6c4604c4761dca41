package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/aouyang1/ratedisplay/api/client"
	"github.com/aouyang1/ratedisplay/util"
)

const (
	remotePromoFolder = "s3"

	defaultRemoteSyncInterval = time.Hour
	defaultRemoteSyncTimeout  = 30 * time.Minute
)

// RemoteManager mirrors an S3 bucket of promotional images into the s3 folder of the
// promo upload directory and registers what it downloads.
type RemoteManager struct {
	client *s3.Client

	s3Bucket   string
	outputPath string

	interval time.Duration
	timeout  time.Duration

	registry fileRegistry

	Updated chan bool
}

type RemoteOptions struct {
	Profile  string
	Bucket   string
	PromoDir string
	Interval time.Duration
	Timeout  time.Duration
}

func NewRemoteManager(opts RemoteOptions, displayClient *client.DisplayClient) (*RemoteManager, error) {
	if opts.Bucket == "" {
		return nil, errors.New("no s3 bucket provided for remote manager")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultRemoteSyncInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRemoteSyncTimeout
	}
	outputPath := filepath.Join(opts.PromoDir, remotePromoFolder)
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create promo directory: %w", err)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}

	// Load the Shared AWS Configuration (~/.aws/config)
	ctxCfg, cancelCfg := context.WithTimeout(context.Background(), 3*time.Second)
	cfg, err := awsconfig.LoadDefaultConfig(ctxCfg, loadOpts...)
	cancelCfg()
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &RemoteManager{
		client:     s3.NewFromConfig(cfg),
		s3Bucket:   opts.Bucket,
		outputPath: outputPath,
		interval:   opts.Interval,
		timeout:    opts.Timeout,
		registry:   promoRegistry{dc: displayClient, folder: remotePromoFolder},
		Updated:    make(chan bool, 1),
	}, nil
}

func (r *RemoteManager) GetS3Objects(ctx context.Context) ([]s3types.Object, error) {
	var objects []s3types.Object
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.s3Bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		objects = append(objects, page.Contents...)
	}
	return objects, nil
}

func (r *RemoteManager) DownloadObject(ctx context.Context, name string) error {
	downloader := manager.NewDownloader(r.client)

	path := filepath.Join(r.outputPath, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create file for s3 download, %s, %w", name, err)
	}
	defer f.Close()

	if _, err := downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(r.s3Bucket),
		Key:    aws.String(name),
	}); err != nil {
		os.Remove(path)
		return fmt.Errorf("unable to download object from s3, %s, %w", name, err)
	}
	return nil
}

func (r *RemoteManager) getRemoteFiles(ctx context.Context) (mapset.Set[string], error) {
	remoteFiles := mapset.NewSet[string]()
	objects, err := r.GetS3Objects(ctx)
	if err != nil {
		return nil, err
	}
	for _, object := range objects {
		name := aws.ToString(object.Key)
		// nested keys would escape the flat promo directory
		if name != filepath.Base(name) || !util.ImageExt.Contains(util.Ext(name)) {
			continue
		}
		remoteFiles.Add(name)
	}

	if remoteFiles.Cardinality() == 0 {
		slog.Info("no remote files found")
	}
	return remoteFiles, nil
}

// SyncFolder downloads new bucket objects, removes mirrored files that left the bucket
// and then reconciles the promo table with the directory.
func (r *RemoteManager) SyncFolder(ctx context.Context) error {
	localFiles, err := listFiles(r.outputPath, util.ImageExt)
	if err != nil {
		return fmt.Errorf("unable to read directory, %s, %w", r.outputPath, err)
	}

	remoteFiles, err := r.getRemoteFiles(ctx)
	if err != nil {
		return err
	}

	toDelete := localFiles.Difference(remoteFiles).ToSlice()
	toDownload := remoteFiles.Difference(localFiles).ToSlice()
	if len(toDelete) > 0 {
		slog.Info("deleting local files", "count", len(toDelete), "names", toDelete)
		for _, name := range toDelete {
			if err := os.Remove(filepath.Join(r.outputPath, name)); err != nil {
				slog.Warn("unable to remove local file", "error", err)
			}
		}
	}
	if len(toDownload) > 0 {
		slog.Info("adding files", "count", len(toDownload), "names", toDownload)
		for _, name := range toDownload {
			if err := r.DownloadObject(ctx, name); err != nil {
				slog.Warn("error while downloading s3 object", "name", name, "error", err)
			}
		}
	}

	// Get current local files again (in case they changed during sync)
	localFiles, err = listFiles(r.outputPath, util.ImageExt)
	if err != nil {
		return fmt.Errorf("unable to read directory, %s, %w", r.outputPath, err)
	}
	changed := reconcileDir(ctx, r.registry, r.outputPath, localFiles)

	// Only signal update if there were actual changes
	if changed || len(toDelete) > 0 || len(toDownload) > 0 {
		select {
		case r.Updated <- true:
		default:
		}
	}
	return nil
}

func (r *RemoteManager) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		syncCtx, cancel := context.WithTimeout(ctx, r.timeout)
		if err := r.SyncFolder(syncCtx); err != nil {
			slog.Warn("error while syncing with remote", "error", err)
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
