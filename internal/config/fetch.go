package config

import (
	"context"
	"fmt"
	"os"

	get "github.com/hashicorp/go-getter"
)

// Fetch downloads a single config file from src to dst. src is any
// go-getter address: a local path, an http(s) URL, git::, s3:: and so on.
func Fetch(ctx context.Context, src, dst string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}
	client := &get.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: get.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch config %s: %w", src, err)
	}
	return nil
}

// FetchAndLoad downloads src to dst and loads it.
func FetchAndLoad(ctx context.Context, src, dst string) (*Config, error) {
	if err := Fetch(ctx, src, dst); err != nil {
		return nil, err
	}
	return Load(dst)
}
