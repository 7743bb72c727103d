package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Minute}

/**
 * Download a file over HTTP
 * @param {context.Context} ctx - Cancels the transfer
 * @param {string} urlStr - Source URL
 * @param {string} savePath - Destination file
 * @returns {error} Returns error on transport failure or non-200 status
 * @description
 * - Writes to savePath+".part" and renames on success, no partial file is left behind
 */
func GetFile(ctx context.Context, urlStr string, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return fmt.Errorf("GetFile('%s') failed: %v", urlStr, err)
	}

	rsp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GetFile('%s') failed: %v", urlStr, err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		rspBody, _ := io.ReadAll(io.LimitReader(rsp.Body, 4096))
		return fmt.Errorf("GetFile('%s') code: %d, error:%s", urlStr, rsp.StatusCode, string(rspBody))
	}

	if err = os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return fmt.Errorf("GetFile('%s'): MkdirAll('%s') error:%v", urlStr, savePath, err)
	}
	partPath := savePath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("GetFile('%s'): create('%s') error: %v", urlStr, partPath, err)
	}

	// 将响应流和文件流对接起来
	_, err = io.Copy(out, rsp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partPath)
		return fmt.Errorf("GetFile('%s'): copy error: %v", urlStr, err)
	}
	return os.Rename(partPath, savePath)
}
