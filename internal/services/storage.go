package services

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/config"
)

const maxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ImageStore puts tool images on S3 when AWS is configured and on local disk
// otherwise.
type ImageStore struct {
	s3Client  *s3.S3
	uploader  *s3manager.Uploader
	bucket    string
	region    string
	baseURL   string
	uploadDir string
}

func NewImageStore(cfg config.Storage) (*ImageStore, error) {
	st := &ImageStore{baseURL: strings.TrimRight(cfg.BaseURL, "/"), uploadDir: cfg.UploadDir}

	if cfg.UseS3() {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %v", err)
		}
		st.s3Client = s3.New(sess)
		st.uploader = s3manager.NewUploader(sess)
		st.bucket = cfg.S3Bucket
		st.region = cfg.AWSRegion
		log.Println("AWS S3 storage initialized")
		return st, nil
	}

	if err := os.MkdirAll(st.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %v", err)
	}
	log.Println("AWS S3 not configured, using local file storage")
	return st, nil
}

func (st *ImageStore) UsingS3() bool {
	return st.uploader != nil
}

// UploadImage stores the file under folder and returns its public URL.
func (st *ImageStore) UploadImage(file *multipart.FileHeader, folder string) (string, error) {
	if file.Size > maxImageSize {
		return "", apperrors.Invalid("image", fmt.Sprintf("must not exceed %d bytes", maxImageSize))
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer src.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(src, maxImageSize+1)); err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	contentType := http.DetectContentType(buf.Bytes())
	if !allowedImageTypes[contentType] {
		return "", apperrors.Invalid("image", "unsupported image type "+contentType)
	}

	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), strings.ToLower(filepath.Ext(file.Filename)))
	if st.UsingS3() {
		key := folder + "/" + name
		_, err := st.uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(st.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload to S3: %v", err)
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", st.bucket, st.region, key), nil
	}

	dir := filepath.Join(st.uploadDir, folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}
	return fmt.Sprintf("%s/uploads/%s/%s", st.baseURL, folder, name), nil
}

// DeleteImage removes an image previously returned by UploadImage.
func (st *ImageStore) DeleteImage(imageURL string) error {
	if imageURL == "" {
		return nil
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return err
	}
	path := strings.TrimPrefix(u.Path, "/")

	if st.UsingS3() {
		_, err := st.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(st.bucket),
			Key:    aws.String(path),
		})
		return err
	}

	rel := strings.TrimPrefix(path, "uploads/")
	if rel == path || strings.Contains(rel, "..") {
		return fmt.Errorf("not a local upload: %s", imageURL)
	}
	err = os.Remove(filepath.Join(st.uploadDir, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
