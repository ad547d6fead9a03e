// Package testsupport holds fixtures shared by package tests: temp-dir
// configs, stub ffmpeg/ffprobe scripts and sample media files.
package testsupport
