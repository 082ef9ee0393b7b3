package util

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeDurationSeconds 通过 ffprobe 读取视频时长（秒，向上取整）
func ProbeDurationSeconds(videoPath string) (int, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return 0, fmt.Errorf("video file not found: %w", err)
	}

	out, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return 0, fmt.Errorf("probe video: %w", err)
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return 0, fmt.Errorf("parse probe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", result.Format.Duration, err)
	}
	return int(math.Ceil(seconds)), nil
}

// GenerateThumbnail 截取 offset 秒处的一帧作为缩略图
func GenerateThumbnail(videoPath, thumbnailPath string, offset string) error {
	if err := os.MkdirAll(filepath.Dir(thumbnailPath), 0755); err != nil {
		return err
	}

	return ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": offset}).
		Output(thumbnailPath, ffmpeg.KwArgs{"vframes": "1", "q:v": "2"}).
		OverWriteOutput().
		Run()
}

// FFmpegAvailable 检查 ffmpeg 是否已安装，健康检查使用
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
