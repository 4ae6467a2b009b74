package route

import "strings"

// Rewrite strips prefix from fullPath and appends the residual to baseURL. The
// residual keeps the separator that ends prefix, so an empty remainder becomes
// "/". Bytes after the prefix are passed through untouched: no cleaning, no
// percent decoding. A trailing "/" on baseURL is not doubled. If fullPath does
// not carry prefix, the whole path is appended instead.
func Rewrite(fullPath, prefix, baseURL string) string {
	residual := fullPath
	if prefix != "" && strings.HasPrefix(fullPath, prefix) {
		residual = "/" + fullPath[len(prefix):]
	}
	if !strings.HasPrefix(residual, "/") {
		residual = "/" + residual
	}
	return strings.TrimSuffix(baseURL, "/") + residual
}
