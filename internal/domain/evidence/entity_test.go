package evidence

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesSingleDescriptor(t *testing.T) {
	ev := Evidence{
		Type:    TypeFile,
		Content: `{"name":"photo.jpg","mimeType":"image/jpeg","data":"aGVsbG8="}`,
	}
	files, err := ev.Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "photo.jpg", files[0].Name)

	raw, err := files[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), raw)
}

func TestFilesDescriptorList(t *testing.T) {
	ev := Evidence{
		Type:    TypeFile,
		Content: `[{"name":"a.png","mimeType":"image/png","data":"aGk="},{"name":"b.png","mimeType":"image/png","data":"aG8="}]`,
	}
	files, err := ev.Files()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestBytesDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("pixels"))
	f := FileDescriptor{Data: "data:image/png;base64," + payload}
	raw, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), raw)
}

func TestBytesDataURLWithoutPayload(t *testing.T) {
	for _, data := range []string{"data:image/png;base64", "data:image/png;base64,"} {
		f := FileDescriptor{Data: data}
		_, err := f.Bytes()
		assert.ErrorIs(t, err, ErrInvalidFormat, "data=%q", data)
	}
}

func TestFilesRejectsGarbage(t *testing.T) {
	for _, content := range []string{"", "   ", "not json", "[]"} {
		ev := Evidence{Type: TypeFile, Content: content}
		_, err := ev.Files()
		assert.ErrorIs(t, err, ErrInvalidFormat, "content=%q", content)
	}
}

func TestFilesWrongType(t *testing.T) {
	ev := Evidence{Type: TypeText, Content: "hello"}
	_, err := ev.Files()
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
