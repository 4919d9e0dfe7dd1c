package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/config"
	"github.com/KotFed0t/stocks_tracker_bot/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"

// GoogleDriveApi хранит выгрузки списков, которые не влезают в лимит телеграма
type GoogleDriveApi struct {
	srv     *drive.Service
	fileTTL time.Duration
	now     func() time.Time
}

func New(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*GoogleDriveApi, error) {
	if cfg.GoogleDrive.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	}

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		slog.Error("failed on drive.NewService", slog.String("err", err.Error()))
		return nil, err
	}

	return &GoogleDriveApi{srv: srv, fileTTL: cfg.GoogleDrive.FileTTL, now: time.Now}, nil
}

func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))
	defer func() {
		if err != nil {
			slog.Error("UploadFile failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	fileMeta := &drive.File{
		Name:     filename,
		MimeType: mime.TypeByExtension(filepath.Ext(filename)),
	}

	uploadedFile, err := a.srv.Files.
		Create(fileMeta).
		Media(reader). // автоматически разбивает на чанки по 16МБ и ретраит их при ошибках сети
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	perm := &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}

	_, err = a.srv.Permissions.Create(uploadedFile.Id, perm).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create permission: %w", err)
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploadedFile.Id))

	return fmt.Sprintf(downloadLinkTemplate, uploadedFile.Id), nil
}

// DeleteOldFiles удаляет выгрузки старше fileTTL и очищает корзину
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))

	deadline := a.now().Add(-a.fileTTL)
	totalFiles := 0
	deletedFiles := 0

	err := a.srv.Files.List().
		Fields("nextPageToken, files(id, createdTime)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				totalFiles++

				expired, err := isExpired(f.CreatedTime, deadline)
				if err != nil {
					slog.Error(
						"failed parse time",
						slog.String("rqID", rqID),
						slog.String("op", op),
						slog.String("err", err.Error()),
						slog.String("fileID", f.Id),
						slog.String("createdTime", f.CreatedTime),
					)
					continue
				}
				if !expired {
					continue
				}

				err = a.srv.Files.Delete(f.Id).Context(ctx).Do()
				if err != nil {
					slog.Error("failed delete file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("fileID", f.Id))
					continue
				}
				deletedFiles++
			}
			return nil
		})
	if err != nil {
		slog.Error("failed on getting files", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = a.srv.Files.EmptyTrash().Context(ctx).Do()
	if err != nil {
		slog.Error("failed empty trash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("delete old files done", slog.String("rqID", rqID), slog.Int("deletedFiles", deletedFiles), slog.Int("remainingFiles", totalFiles-deletedFiles))

	return nil
}

func isExpired(createdTime string, deadline time.Time) (bool, error) {
	created, err := time.Parse(time.RFC3339, createdTime)
	if err != nil {
		return false, err
	}
	return created.Before(deadline), nil
}
