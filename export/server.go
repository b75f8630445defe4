package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang/glog"
)

const (
	contentType             = "application/json"
	CollectEndpoint         = "fbcut/v1/collect"
	defaultSendRecordAmount = 100
)

// Server sends records to a catalog server in batches.
type Server struct {
	Server            string
	SendRecordsAmount int
	Client            *http.Client
}

// CollectResponse is what the catalog server answers to a collect request.
type CollectResponse struct {
	Status      string `json:"status"`
	RecordCount int    `json:"recordCount"`
}

func (s *Server) Write(ctx context.Context, records <-chan Record) error {
	sendRecordsAmount := defaultSendRecordAmount
	if s.SendRecordsAmount > 0 {
		sendRecordsAmount = s.SendRecordsAmount
	}

	failed := 0
	var toSend []Record
	flush := func() {
		if len(toSend) == 0 {
			return
		}
		if err := s.post(ctx, toSend); err != nil {
			failed += len(toSend)
			glog.Warningf("error submitting %d records: %s\n", len(toSend), err)
		}
		toSend = nil
	}

	for r := range records {
		toSend = append(toSend, r)
		if len(toSend) < sendRecordsAmount {
			continue // we haven't collected enough records to send yet
		}
		flush()
	}
	flush()

	if failed > 0 {
		return fmt.Errorf("unable to submit %d records to %s", failed, s.Server)
	}
	return nil
}

func (s *Server) post(ctx context.Context, records []Record) error {
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("error marshalling records to JSON: %s", err)
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(s.Server, "/"), CollectEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading POST body: %s", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server responded with %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	collectResponseBody := CollectResponse{}
	if err := json.Unmarshal(respBody, &collectResponseBody); err != nil {
		glog.Warningf("unable to decode response from %s: %s\n", s.Server, err)
	}
	glog.Infof("submitted %v records to server %s", collectResponseBody.RecordCount, s.Server)
	return nil
}
