package restyutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.messages == nil {
		o.messages = map[string]string{}
	}
	o.messages[id] = contents
}

func TestRecordExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	out := &memoryOutput{}
	client := resty.New()
	RecordExchanges(client, out, "_password")

	_, err := client.R().
		SetFormData(map[string]string{
			"_username": "rider",
			"_password": "hunter2",
		}).
		Post(server.URL + "/login")
	require.NoError(t, err)

	msg, ok := out.messages["0001-POST"]
	require.True(t, ok)
	require.Contains(t, msg, "_username=rider")
	require.NotContains(t, msg, "hunter2")
	require.True(t, strings.Contains(msg, "<html>ok</html>"))
}

func TestRecordExchangesNilOutput(t *testing.T) {
	client := resty.New()
	RecordExchanges(client, nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := t.TempDir()
	out, err := NewFilesystemOutput(dir + "/dumps")
	require.NoError(t, err)
	out.Write("0001-GET", "contents")
}
