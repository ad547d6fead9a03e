// Package encoding turns one source video into an H.264 MP4 by shelling out to
// ffmpeg.
//
// SelectParams maps a target height and frame rate onto a fixed bitrate
// ladder, OutputName and the executor's name reservation keep outputs from
// colliding, and Executor.Transcode drives a single ffmpeg run through a
// partial file in the work directory before moving the finished artifact into
// the output directory. Failures remove the partial and surface as
// services.ErrExternalTool so the batch loop can move on to the next file.
package encoding
