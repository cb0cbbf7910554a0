package hosted

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"storefix.io/maintenance/internal/images"
)

// Client talks to the image hosting service. The free plan serves
// uploads and durable URLs but exposes no delete API, in which case the
// client is constructed without delete capability and Delete is never
// reached by well-behaved callers.
type Client struct {
	Endpoint  string
	ApiKey    string
	CanDelete bool
	Http      *http.Client
}

func NewDefaultClient() images.Store {
	return &Client{
		Endpoint:  os.Getenv("IMAGE_HOST_URL"),
		ApiKey:    os.Getenv("IMAGE_HOST_API_KEY"),
		CanDelete: os.Getenv("IMAGE_HOST_CAN_DELETE") == "true",
		Http:      &http.Client{},
	}
}

func (c *Client) SupportsDelete() bool {
	return c.CanDelete
}

func (c *Client) Delete(imageUrl string) error {
	if !c.CanDelete {
		return images.ErrDeleteUnsupported
	}
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/images?url=%s&key=%s", c.Endpoint, url.QueryEscape(imageUrl), c.ApiKey), nil)
	if err != nil {
		return err
	}
	resp, err := c.Http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("image host returned %d for %s", resp.StatusCode, imageUrl)
	}
	return nil
}
