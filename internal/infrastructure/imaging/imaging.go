// Package imaging 提供缩略图与发布前的图片处理
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	// 注册 gif 解码器
	_ "image/gif"

	"golang.org/x/image/draw"
	// 注册 webp 解码器
	_ "golang.org/x/image/webp"
)

const (
	// ThumbnailSize 缩略图最长边
	ThumbnailSize = 256
	// InstagramMaxSize Instagram 上传图片的最长边
	InstagramMaxSize = 1080
	// InstagramJPEGQuality 发布用 JPEG 质量
	InstagramJPEGQuality = 90
)

// Decode 解码 png/jpeg/gif/webp 图片
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Thumbnail 生成 256x256 内等比缩略图，PNG 编码
func Thumbnail(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Fit(img, ThumbnailSize, true)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// ForInstagram 将图片缩放到 1080 以内 (不放大) 并编码为 JPEG
func ForInstagram(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Fit(img, InstagramMaxSize, false), &jpeg.Options{Quality: InstagramJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Fit 等比缩放使最长边不超过 limit；upscale 为 false 时小图原样返回
func Fit(img image.Image, limit int, upscale bool) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}
	if !upscale && w <= limit && h <= limit {
		return img
	}

	nw, nh := limit, limit
	if w >= h {
		nh = max(1, h*limit/w)
	} else {
		nw = max(1, w*limit/h)
	}
	if nw == w && nh == h {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
