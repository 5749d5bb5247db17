package constants

import "time"

var WebSocketConfig = struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	HandshakeTimeout     time.Duration
}{
	MaxReconnectAttempts: 5,
	ReconnectDelay:       5 * time.Second,
	HandshakeTimeout:     10 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // consecutive failures before OPEN
	ResetTimeout:     30 * time.Second, // wait before HALF_OPEN probe
}

var MemeConfig = struct {
	MenuTemplateLimit      int
	MenuKeywordsPerItem    int
	MenuItemsPerCategory   int
	DefaultCategory        string
	InfoFetchConcurrency   int
	EngineRequestTimeout   time.Duration
	EngineRenderTimeout    time.Duration
	InstallCommandTimeout  time.Duration
	DetectionProbeInterval time.Duration
	CatalogLoadTimeout     time.Duration
}{
	MenuTemplateLimit:      50,
	MenuKeywordsPerItem:    2,
	MenuItemsPerCategory:   10,
	DefaultCategory:        "other",
	InfoFetchConcurrency:   8,
	EngineRequestTimeout:   10 * time.Second,
	EngineRenderTimeout:    60 * time.Second,
	InstallCommandTimeout:  5 * time.Minute,
	DetectionProbeInterval: 500 * time.Millisecond,
	CatalogLoadTimeout:     10 * time.Minute,
}

var AvatarConfig = struct {
	VisionModelName   string
	RequestType       string
	ImageFormat       string
	QQAvatarURLFormat string
	LogPreviewRunes   int
	ReplyPreviewRunes int
}{
	VisionModelName:   "vision_general",
	RequestType:       "avatar_analysis",
	ImageFormat:       "jpeg",
	QQAvatarURLFormat: "http://q.qlogo.cn/headimg_dl?dst_uin=%s&spec=640&img_type=jpg",
	LogPreviewRunes:   30,
	ReplyPreviewRunes: 50,
}

var CacheKeys = struct {
	AvatarDescriptionPrefix string
}{
	AvatarDescriptionPrefix: "avatar:description:",
}
