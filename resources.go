package fetchq

import (
	"time"

	fqerrors "github.com/hostloop/fetchq/errors"
	"github.com/hostloop/fetchq/handle"
	"github.com/hostloop/fetchq/jsonval"
	"github.com/hostloop/fetchq/queue"
)

// Request bodies. Each body is owned by its table entry; Submit takes an
// independent copy, so a body handle can be destroyed the moment Submit
// returns.

// BodyFromString stores a request body and returns its handle.
func (c *Client) BodyFromString(s string) handle.ID {
	return c.bodies.Insert([]byte(s))
}

// BodyFromJSON serializes a stored JSON document into a new body.
func (c *Client) BodyFromJSON(docID handle.ID, pretty bool) (handle.ID, error) {
	doc, ok := c.docs.Get(docID)
	if !ok {
		return 0, fqerrors.NotFound(fqerrors.PhaseHandle, "json document", int64(docID))
	}
	s, err := doc.Serialize(pretty)
	if err != nil {
		return 0, err
	}
	return c.bodies.Insert([]byte(s)), nil
}

// Body returns the stored bytes for a body handle.
func (c *Client) Body(id handle.ID) ([]byte, error) {
	b, ok := c.bodies.Get(id)
	if !ok {
		return nil, fqerrors.NotFound(fqerrors.PhaseHandle, "body", int64(id))
	}
	return b, nil
}

// DestroyBody removes a body handle.
func (c *Client) DestroyBody(id handle.ID) error {
	if _, ok := c.bodies.Remove(id); !ok {
		return fqerrors.NotFound(fqerrors.PhaseHandle, "body", int64(id))
	}
	return nil
}

// Option sets. Mutable while held by their table entry; submitted
// requests carry a clone, so mutations never reach in-flight work.

// NewOptions creates an option set with the given timeout. A zero
// timeout means no per-request deadline.
func (c *Client) NewOptions(timeout time.Duration) handle.ID {
	return c.options.Insert(queue.NewOptions(timeout))
}

// OptionsAddHeader appends a header to an option set. Keys may repeat.
func (c *Client) OptionsAddHeader(id handle.ID, name, value string) error {
	opts, ok := c.options.Get(id)
	if !ok {
		return fqerrors.NotFound(fqerrors.PhaseHandle, "options", int64(id))
	}
	opts.Header.Add(name, value)
	return nil
}

// OptionsSetTimeout replaces the timeout of an option set.
func (c *Client) OptionsSetTimeout(id handle.ID, timeout time.Duration) error {
	if timeout < 0 {
		return fqerrors.InvalidInput(fqerrors.PhaseHandle, "timeout must not be negative")
	}
	opts, ok := c.options.Get(id)
	if !ok {
		return fqerrors.NotFound(fqerrors.PhaseHandle, "options", int64(id))
	}
	opts.Timeout = timeout
	return nil
}

// DestroyOptions removes an option set handle.
func (c *Client) DestroyOptions(id handle.ID) error {
	if _, ok := c.options.Remove(id); !ok {
		return fqerrors.NotFound(fqerrors.PhaseHandle, "options", int64(id))
	}
	return nil
}

// JSON documents.

// ParseJSON parses a document from text and stores it under a new handle.
func (c *Client) ParseJSON(src string) (handle.ID, error) {
	doc, err := jsonval.Parse(src)
	if err != nil {
		return 0, err
	}
	return c.docs.Insert(doc), nil
}

// ParseJSONFile parses a document from a file on disk.
func (c *Client) ParseJSONFile(path string) (handle.ID, error) {
	doc, err := jsonval.ParseFile(path)
	if err != nil {
		return 0, err
	}
	return c.docs.Insert(doc), nil
}

// StoreJSON stores an already-built document and returns its handle.
func (c *Client) StoreJSON(doc *jsonval.Value) handle.ID {
	return c.docs.Insert(doc)
}

// JSON returns the document behind a handle. The document is shared, not
// copied: mutations through it are visible to later lookups of the same
// handle, the way option-set mutation is.
func (c *Client) JSON(id handle.ID) (*jsonval.Value, error) {
	doc, ok := c.docs.Get(id)
	if !ok {
		return nil, fqerrors.NotFound(fqerrors.PhaseHandle, "json document", int64(id))
	}
	return doc, nil
}

// JSONGetPath resolves a dot-separated path inside a stored document and
// stores the result as a new independent document handle.
func (c *Client) JSONGetPath(id handle.ID, path string) (handle.ID, error) {
	doc, ok := c.docs.Get(id)
	if !ok {
		return 0, fqerrors.NotFound(fqerrors.PhaseHandle, "json document", int64(id))
	}
	sub, err := doc.GetPath(path)
	if err != nil {
		return 0, err
	}
	return c.docs.Insert(sub), nil
}

// DestroyJSON removes a document handle.
func (c *Client) DestroyJSON(id handle.ID) error {
	if _, ok := c.docs.Remove(id); !ok {
		return fqerrors.NotFound(fqerrors.PhaseHandle, "json document", int64(id))
	}
	return nil
}
