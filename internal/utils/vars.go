package utils

import (
	"errors"
	"time"
)

const ToolUserAgent = "humble-cli/dev"
const DefaultBufferSize = 1024 * 32 // 32KB read buffer per chunk
const LogFile = ".humble-cli.log"

const (
	DefaultTimeout     = 30 * time.Second
	DefaultReadTimeout = 30 * time.Second
	DefaultKATimeout   = 90 * time.Second
	DefaultRetries     = 3
	DefaultRetryDelay  = 5 * time.Second
)

var ErrEmptySize = errors.New("empty size string")

// filename characters that are replaced with a space
var invalidFilenameChars = map[rune]bool{
	'/': true, '\\': true, '?': true, '%': true, '*': true, ':': true,
	'|': true, '"': true, '<': true, '>': true, ';': true, '=': true,
	'\n': true,
}
