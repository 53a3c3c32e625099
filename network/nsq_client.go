package network

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

type NSQClient struct {
	URL string
}

// Formally define this so we can swap in a failing fake for testing
// the synchronous-fallback path.
type NSQClientInterface interface {
	Enqueue(topic string, payload []byte) error
}

// NewNSQClient returns a new NSQ client that will publish to the nsqd
// at the specified url, which usually ends with :4151. This is the
// URL to which we post re-encode jobs. This client provides write
// access only; the encode worker does the reading through go-nsq.
func NewNSQClient(url string) *NSQClient {
	return &NSQClient{URL: url}
}

// Enqueue posts a job payload to NSQ under the given topic.
func (client *NSQClient) Enqueue(topic string, payload []byte) error {
	url := fmt.Sprintf("%s/pub?topic=%s", client.URL, topic)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("Nsqd returned an error when queuing data: %v", err)
	}
	if resp == nil {
		return fmt.Errorf("No response from nsqd at '%s'. Is it running?", url)
	}

	// nsqd sends a simple OK. We have to read the response body,
	// or the connection will hang open forever.
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != 200 {
		bodyText := "[no response body]"
		if len(body) > 0 {
			bodyText = string(body)
		}
		return fmt.Errorf("nsqd returned status code %d when attempting to queue data. "+
			"Response body: %s", resp.StatusCode, bodyText)
	}
	return nil
}
