// Package mix implements the sequence builder: it resolves up to four
// audio sources, normalizes them to a common intermediate representation,
// applies tempo and background gain adjustments, interleaves each slot's
// audio with its background track and inserted silence, and concatenates
// everything into a single encoded output file.
//
// The actual audio work is delegated to an AudioTool implementation
// (internal/ffmpeg) and remote acquisition to a Fetcher (internal/ytdlp);
// this package only owns ordering, validation and working-directory
// lifecycle.
package mix
