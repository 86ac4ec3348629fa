package deviceinfo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RemoteProvider queries another host's deviceinfo agent over HTTP
// instead of the local volume: one small JSON request/response pair per
// call, no fan-out or node list to manage.
type RemoteProvider struct {
	Host   string
	Client *http.Client
}

// NewRemoteProvider returns a RemoteProvider with a sane default client
// timeout.
func NewRemoteProvider(host string) *RemoteProvider {
	return &RemoteProvider{Host: host, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (r *RemoteProvider) GetSectorSize(path string) (int64, int64, error) {
	var out struct {
		Logical  int64 `json:"logical"`
		Physical int64 `json:"physical"`
	}
	if err := r.get("/sectorsize", path, &out); err != nil {
		return 0, 0, err
	}
	return out.Logical, out.Physical, nil
}

func (r *RemoteProvider) GetDriveDetails(path string) (*DriveDetails, error) {
	var out DriveDetails
	if err := r.get("/drivedetails", path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RemoteProvider) get(endpoint, path string, out interface{}) error {
	u := fmt.Sprintf("http://%s%s?path=%s", r.Host, endpoint, url.QueryEscape(path))
	resp, err := r.Client.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deviceinfo agent %s returned %s", r.Host, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
