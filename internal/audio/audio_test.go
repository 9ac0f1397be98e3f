package audio_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/samtupy/folderstats/internal/audio"
	"github.com/samtupy/folderstats/internal/model"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	t.Parallel()
	require.Equal(t, "mp3", audio.Format("/music/Song.MP3"))
	require.Equal(t, "wav", audio.Format("a.b.wav"))
	require.Equal(t, "", audio.Format("/music/README"))
}

func TestFiles_Supported(t *testing.T) {
	t.Parallel()
	files := audio.NewFiles()
	require.True(t, files.Supported("a.mp3"))
	require.True(t, files.Supported("A.WAV"))
	require.False(t, files.Supported("a.flac"))
	require.False(t, files.Supported("mp3"))
}

func TestFiles_Extract_wav(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, pcmWav(8000, 2), 0644))

	info, err := audio.NewFiles().Extract(path)
	require.NoError(t, err)
	require.Equal(t, "wav", info.Format)
	require.InDelta(t, 2.0, info.Duration, 0.01)
}

func TestFiles_Extract_Fail(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	garbageMP3 := filepath.Join(dir, "garbage.mp3")
	require.NoError(t, os.WriteFile(garbageMP3, bytes.Repeat([]byte("not an mp3 "), 64), 0644))
	_, err := audio.NewFiles().Extract(garbageMP3)
	require.Error(t, err)

	garbageWAV := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbageWAV, []byte("RIFF"), 0644))
	_, err = audio.NewFiles().Extract(garbageWAV)
	require.ErrorIs(t, err, model.ErrUnsupported)

	_, err = audio.NewFiles().Extract(filepath.Join(dir, "a.flac"))
	require.ErrorIs(t, err, model.ErrUnsupported)

	_, err = audio.NewFiles().Extract(filepath.Join(dir, "missing.wav"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// pcmWav returns a mono 16 bit PCM wav of silence.
func pcmWav(sampleRate uint32, seconds uint32) []byte {
	const (
		channels = 1
		bits     = 16
	)
	blockAlign := uint16(channels * bits / 8)
	byteRate := sampleRate * uint32(blockAlign)
	dataLen := byteRate * seconds

	var b bytes.Buffer
	w := func(v any) {
		_ = binary.Write(&b, binary.LittleEndian, v)
	}
	b.WriteString("RIFF")
	w(uint32(36 + dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1)) // PCM
	w(uint16(channels))
	w(sampleRate)
	w(byteRate)
	w(blockAlign)
	w(uint16(bits))
	b.WriteString("data")
	w(dataLen)
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}
