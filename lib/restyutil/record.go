package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// RecordExchanges writes every completed request/response pair of client to
// output, numbered in the order they complete. Form fields named in redact
// never reach the output. A nil output makes this a no-op.
func RecordExchanges(client *resty.Client, output InstrumentOutput, redact ...string) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		output.Write(
			fmt.Sprintf("%04d-%s", id, res.Request.Method),
			formatHttpMessage(res, redact),
		)
		return nil
	})
}
