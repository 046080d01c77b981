package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DriveService downloads file bytes from a cloud drive given the file
// identity and the caller's access credential.
type DriveService interface {
	Download(ctx context.Context, fileID, accessToken string) ([]byte, error)
}

type driveClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewDriveService(baseURL string) DriveService {
	return &driveClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (d *driveClient) Download(ctx context.Context, fileID, accessToken string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/files/%s?alt=media", strings.TrimRight(d.baseURL, "/"), fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build drive request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("drive download failed: status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("drive download failed: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("drive download failed: empty file")
	}

	return data, nil
}
