package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"rafts/backend"
	"rafts/config"
	"rafts/models"
	"rafts/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const keyPrefix = "rafts-backup-"

type BackupConfig struct {
	BackupBucket    string `envconfig:"BACKUP_S3_BUCKET" required:"true"`
	BackupEndpoint  string `envconfig:"BACKUP_S3_ENDPOINT" required:"true"`
	BackupAccessKey string `envconfig:"BACKUP_S3_ACCESS_KEY" required:"true"`
	BackupSecretKey string `envconfig:"BACKUP_S3_SECRET_KEY" required:"true"`
	BackupRegion    string `envconfig:"BACKUP_S3_REGION" required:"true"`
	KeepBackups     int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// objectStore ist der Teil von *s3.Client, den das Backup braucht.
type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Snapshot ist der Inhalt einer Sicherung: die Registry-Liste und jede lesbare RAFT.json.
type Snapshot struct {
	CreatedAt time.Time       `json:"createdAt"`
	Entries   []SnapshotEntry `json:"entries"`
}

type SnapshotEntry struct {
	Record  models.DoiRecord   `json:"record"`
	Sidecar *models.Submission `json:"sidecar,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()
	logging.Info("Starte Backup-Prozess...")

	var bcfg BackupConfig
	if err := envconfig.Process("", &bcfg); err != nil {
		logging.Fatal("Fehler beim Laden der Backup-Konfiguration", zap.Error(err))
	}
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	if cfg.ServiceToken == "" && cfg.Backend == "live" {
		logging.Fatal("SERVICE_TOKEN is required to read the registry")
	}

	ctx := backend.WithAccessToken(context.Background(), cfg.ServiceToken)
	b, err := backend.FromConfig(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Backend setup failed", zap.Error(err))
	}

	// 1. Snapshot erstellen
	snapshot, err := buildSnapshot(ctx, b, logging)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des Snapshots", zap.Error(err))
	}
	data, err := compress(snapshot)
	if err != nil {
		logging.Fatal("Fehler beim Komprimieren des Snapshots", zap.Error(err))
	}

	// 2. S3-Client erstellen
	client, err := storage.NewS3Client(ctx, bcfg.BackupEndpoint, bcfg.BackupRegion, bcfg.BackupAccessKey, bcfg.BackupSecretKey)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	// 3. Backup nach S3 hochladen
	key := keyPrefix + snapshot.CreatedAt.Format("2006-01-02T15-04-05Z") + ".json.gz"
	if err := upload(ctx, client, bcfg.BackupBucket, key, data); err != nil {
		logging.Fatal("Fehler beim Hochladen nach S3", zap.Error(err))
	}
	logging.Info("Backup hochgeladen",
		zap.String("location", fmt.Sprintf("s3://%s/%s", bcfg.BackupBucket, key)),
		zap.Int("entries", len(snapshot.Entries)))

	// 4. Alte Backups rotieren
	if err := rotateBackups(ctx, client, bcfg.BackupBucket, bcfg.KeepBackups, logging); err != nil {
		logging.Fatal("Fehler bei der Rotation alter Backups", zap.Error(err))
	}
	logging.Info("Backup-Prozess erfolgreich abgeschlossen.")
}

// buildSnapshot liest alle Registry-Einträge und deren RAFT.json.
// Nicht lesbare Sidecars werden mit Fehlertext statt Inhalt gesichert.
func buildSnapshot(ctx context.Context, b backend.SubmissionBackend, logging *zap.Logger) (*Snapshot, error) {
	records, err := b.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{CreatedAt: time.Now().UTC(), Entries: make([]SnapshotEntry, 0, len(records))}
	for _, rec := range records {
		entry := SnapshotEntry{Record: rec}
		if rec.DataDirectory != "" {
			sub, err := b.DownloadSubmission(ctx, rec.DataDirectory)
			if err != nil {
				logging.Warn("RAFT.json not included in backup", zap.String("identifier", rec.Identifier), zap.Error(err))
				entry.Error = err.Error()
			} else {
				entry.Sidecar = sub
			}
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	return snapshot, nil
}

func compress(snapshot *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gzipWriter).Encode(snapshot); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func upload(ctx context.Context, client objectStore, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	return err
}

// rotateBackups behält die keep neuesten Sicherungen mit keyPrefix und löscht den Rest.
func rotateBackups(ctx context.Context, client objectStore, bucket string, keep int, logging *zap.Logger) error {
	output, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(keyPrefix),
	})
	if err != nil {
		return err
	}

	var objects []types.Object
	for _, obj := range output.Contents {
		if obj.Key != nil && strings.HasPrefix(*obj.Key, keyPrefix) && obj.LastModified != nil {
			objects = append(objects, obj)
		}
	}
	if len(objects) <= keep {
		logging.Info("Keine Rotation nötig", zap.Int("backups", len(objects)), zap.Int("keep", keep))
		return nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(*objects[j].LastModified)
	})

	for _, obj := range objects[keep:] {
		logging.Info("Lösche altes Backup", zap.String("key", *obj.Key))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    obj.Key,
		})
		if err != nil {
			logging.Error("Fehler beim Löschen", zap.String("key", *obj.Key), zap.Error(err))
		}
	}
	return nil
}
