package mdblog

import "embed"

// EmbeddedAssets contains static assets shipped with mdblog and served
// under /public/: style.css and reload.js.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
