package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"prep_backend/internal/config"
	"prep_backend/internal/model"
	"prep_backend/internal/repository"
	"prep_backend/internal/util"
	"prep_backend/pkg/logger"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentService 课程视频文件上传与转码信息提取
type ContentService struct {
	CatalogRepo    *repository.CatalogRepository
	StorageService *StorageService
	Cfg            *config.Config
}

func NewContentService(catalogRepo *repository.CatalogRepository, storageService *StorageService, cfg *config.Config) *ContentService {
	return &ContentService{
		CatalogRepo:    catalogRepo,
		StorageService: storageService,
		Cfg:            cfg,
	}
}

func (s *ContentService) tempDir() (string, error) {
	dir := filepath.Join(s.Cfg.Storage.LocalPath, "temp")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// UploadLessonVideo 校验并暂存上传文件，后台完成存储、时长探测和缩略图生成
func (s *ContentService) UploadLessonVideo(ctx context.Context, videoID uint, file *multipart.FileHeader) (*model.VideoLesson, error) {
	video, err := s.CatalogRepo.FindVideo(videoID)
	if err != nil {
		return nil, notFound(err, util.ErrVideoNotFound)
	}

	if !util.HasAllowedExt(file.Filename, util.AllowedVideoExtensions) {
		return nil, util.ErrInvalidVideoExt
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// 深度验证 MIME 类型
	if _, err := util.ValidateMimeType(src, []string{util.MimeVideo}); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidVideoExt, err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	dir, err := s.tempDir()
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	tempPath := filepath.Join(dir, uuid.NewString()+ext)

	dst, err := os.Create(tempPath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tempPath)
		return nil, err
	}
	dst.Close()

	if err := s.CatalogRepo.UpdateVideoProcessing(video.ID, model.ProcessingProcessing, map[string]interface{}{
		"video_source":  model.SourceUpload,
		"error_message": "",
	}); err != nil {
		os.Remove(tempPath)
		return nil, err
	}

	contentType := file.Header.Get("Content-Type")
	go s.ProcessUpload(context.Background(), video.ID, tempPath, util.SafeFilename(file.Filename), contentType)

	video.VideoSource = model.SourceUpload
	video.ProcessingStatus = model.ProcessingProcessing
	video.ErrorMessage = ""
	return video, nil
}

// ProcessUpload 上传暂存文件到存储；ffmpeg 失败不影响视频可用，只记录日志
func (s *ContentService) ProcessUpload(ctx context.Context, videoID uint, tempPath, filename, contentType string) error {
	defer os.Remove(tempPath)

	log := logger.Log.With(zap.Uint("video_id", videoID), zap.String("file", filename))
	updates := map[string]interface{}{}

	videoURL, err := s.StorageService.PutFile(ctx, ObjectKey("videos", filename), tempPath, contentType)
	if err != nil {
		log.Error("Failed to store lesson video", zap.Error(err))
		if uerr := s.CatalogRepo.UpdateVideoProcessing(videoID, model.ProcessingFailed, map[string]interface{}{
			"error_message": err.Error(),
		}); uerr != nil {
			log.Error("Failed to mark video as failed", zap.Error(uerr))
		}
		return err
	}
	updates["video_file"] = videoURL
	updates["error_message"] = ""

	if util.FFmpegAvailable() {
		if duration, err := util.ProbeDurationSeconds(tempPath); err != nil {
			log.Warn("Failed to probe video duration", zap.Error(err))
		} else {
			updates["duration"] = duration
		}

		thumbPath := strings.TrimSuffix(tempPath, filepath.Ext(tempPath)) + ".jpg"
		if err := util.GenerateThumbnail(tempPath, thumbPath, "3"); err != nil {
			log.Warn("Failed to generate thumbnail", zap.Error(err))
		} else {
			thumbKey := ObjectKey("thumbnails", strings.TrimSuffix(filename, filepath.Ext(filename))+".jpg")
			if thumbURL, err := s.StorageService.PutFile(ctx, thumbKey, thumbPath, "image/jpeg"); err != nil {
				log.Warn("Failed to store thumbnail", zap.Error(err))
			} else {
				updates["thumbnail"] = thumbURL
			}
			os.Remove(thumbPath)
		}
	} else {
		log.Warn("ffmpeg not installed, skipping duration and thumbnail")
	}

	if err := s.CatalogRepo.UpdateVideoProcessing(videoID, model.ProcessingReady, updates); err != nil {
		log.Error("Failed to update video after processing", zap.Error(err))
		return err
	}
	log.Info("Lesson video processed")
	return nil
}
