// =============================================================================
// 📦 测试数据工厂 - 图像字节样例
// =============================================================================
// 提供极小但格式合法的图像字节数据，用于上传、编码与会话流程测试
// =============================================================================
package fixtures

import (
	"encoding/base64"

	"github.com/BaSui01/imageflow/imaging"
)

// pngBytes 是一张 1x1 透明像素的完整 PNG（67 字节）。
// 签名 + IHDR + IDAT + IEND，可被任何标准解码器读取。
var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG 签名
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, // 1x1
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, // 8-bit RGBA
	0x89,
	0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41, 0x54, // IDAT
	0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00, 0x05,
	0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4,
	0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, // IEND
	0xAE, 0x42, 0x60, 0x82,
}

// jpegBytes 是一张 1x1 灰度像素的完整基线 JPEG（141 字节）。
// 量化表全 1，DC/AC 哈夫曼表各含一个单比特码，熵数据为 DC=0 + EOB。
var jpegBytes = []byte{
	0xFF, 0xD8, // SOI
	// DQT：量化表 0
	0xFF, 0xDB, 0x00, 0x43, 0x00,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
	// SOF0：8-bit 1x1 单分量
	0xFF, 0xC0, 0x00, 0x0B, 0x08, 0x00, 0x01, 0x00,
	0x01, 0x01, 0x01, 0x11, 0x00,
	// DHT：DC 表 0
	0xFF, 0xC4, 0x00, 0x14, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00,
	// DHT：AC 表 0
	0xFF, 0xC4, 0x00, 0x14, 0x10,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00,
	// SOS + 熵编码数据
	0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00,
	0x3F, 0x00,
	0x3F,
	0xFF, 0xD9, // EOI
}

// =============================================================================
// 🎯 图像字节工厂
// =============================================================================

// PNG 返回一张最小合法 PNG 的字节副本
func PNG() []byte {
	return append([]byte(nil), pngBytes...)
}

// JPEG 返回一张最小合法 JPEG 的字节副本
func JPEG() []byte {
	return append([]byte(nil), jpegBytes...)
}

// PNGBase64 返回 PNG 样例的标准 base64 编码
func PNGBase64() string {
	return base64.StdEncoding.EncodeToString(pngBytes)
}

// JPEGBase64 返回 JPEG 样例的标准 base64 编码
func JPEGBase64() string {
	return base64.StdEncoding.EncodeToString(jpegBytes)
}

// PNGDataURI 返回 PNG 样例的 data URI
func PNGDataURI() string {
	return imaging.BuildDataURI("image/png", PNGBase64())
}

// JPEGDataURI 返回 JPEG 样例的 data URI
func JPEGDataURI() string {
	return imaging.BuildDataURI("image/jpeg", JPEGBase64())
}
