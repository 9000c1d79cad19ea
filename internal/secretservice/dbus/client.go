// SPDX-License-Identifier: Apache-2.0

package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	godbus "github.com/godbus/dbus/v5"
)

// Client is a connection to the Secret Service daemon over the D-Bus
// session bus. One Client may be shared by multiple Collection/Item calls;
// only the owning goroutine may use it concurrently with itself (spec.md
// §5: the D-Bus Connection is shared, only the owning thread may mutate).
type Client struct {
	conn   *godbus.Conn
	logger *slog.Logger
}

// Connect opens a connection to the session bus and returns a Client ready
// to negotiate a session. The caller must call Close when done.
func Connect(logger *slog.Logger) (*Client, error) {
	conn, err := godbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{conn: conn, logger: logger}, nil
}

// Close closes the underlying D-Bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// object returns the proxy object for path on the Secret Service bus name.
func (c *Client) object(path godbus.ObjectPath) godbus.BusObject {
	return c.conn.Object(BusName, path)
}

// callID mints a short correlation id for log lines tagging one outgoing
// D-Bus call, mirroring the teacher's use of uuid.New() to mint session and
// item path segments.
func callID() string {
	return uuid.New().String()[:8]
}

// withTimeout derives a sub-context bounded by DefaultTimeout, enforcing
// spec.md §4.4/§6's 2s default per-call D-Bus method timeout on every
// Service/Collection/Item call this client makes. Callers that pass a
// context with its own, tighter deadline keep that deadline: context.
// WithTimeout always honors the earlier of the two.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTimeout)
}

func (c *Client) logCall(ctx context.Context, method string) string {
	id := callID()
	c.logger.DebugContext(ctx, "secret service call", "call_id", id, "method", method)
	return id
}

// OpenSession negotiates a session with the given algorithm and input
// variant. It returns the daemon's output variant and the new session's
// object path.
func (c *Client) OpenSession(ctx context.Context, algorithm AlgorithmName, input godbus.Variant) (godbus.Variant, godbus.ObjectPath, error) {
	id := c.logCall(ctx, "OpenSession")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var output godbus.Variant
	var path godbus.ObjectPath
	call := c.object(ObjectPath).CallWithContext(ctx, ServiceIface+".OpenSession", 0, string(algorithm), input)
	if err := call.Store(&output, &path); err != nil {
		return godbus.Variant{}, "", fmt.Errorf("open session (call_id=%s): %w", id, err)
	}
	return output, path, nil
}

// ReadAlias resolves a collection alias ("default", "session", ...) to its
// object path, or "/" if the alias is unset.
func (c *Client) ReadAlias(ctx context.Context, name string) (godbus.ObjectPath, error) {
	id := c.logCall(ctx, "ReadAlias")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var path godbus.ObjectPath
	call := c.object(ObjectPath).CallWithContext(ctx, ServiceIface+".ReadAlias", 0, name)
	if err := call.Store(&path); err != nil {
		return "", fmt.Errorf("read alias %q (call_id=%s): %w", name, id, err)
	}
	return path, nil
}

// Collections returns the object paths of every collection the Service
// property Collections currently lists.
func (c *Client) Collections(ctx context.Context) ([]godbus.ObjectPath, error) {
	id := c.logCall(ctx, "Collections")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var variant godbus.Variant
	call := c.object(ObjectPath).CallWithContext(ctx, PropertiesIface+".Get", 0, ServiceIface, "Collections")
	if err := call.Store(&variant); err != nil {
		return nil, fmt.Errorf("list collections (call_id=%s): %w", id, err)
	}
	paths, ok := variant.Value().([]godbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("list collections (call_id=%s): unexpected property type %T", id, variant.Value())
	}
	return paths, nil
}

// CreateCollection creates a new collection with the given label. It
// returns (collectionPath, promptPath); promptPath is NullPromptPath unless
// the daemon requires user interaction.
func (c *Client) CreateCollection(ctx context.Context, label string) (godbus.ObjectPath, godbus.ObjectPath, error) {
	id := c.logCall(ctx, "CreateCollection")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	properties := map[string]godbus.Variant{
		CollectionIface + ".Label": godbus.MakeVariant(label),
	}
	var collection, prompt godbus.ObjectPath
	call := c.object(ObjectPath).CallWithContext(ctx, ServiceIface+".CreateCollection", 0, properties, "")
	if err := call.Store(&collection, &prompt); err != nil {
		return "", "", fmt.Errorf("create collection %q (call_id=%s): %w", label, id, err)
	}
	return collection, prompt, nil
}

// SearchItems returns the item paths in collection matching attributes.
func (c *Client) SearchItems(ctx context.Context, collection godbus.ObjectPath, attributes Attributes) ([]godbus.ObjectPath, error) {
	id := c.logCall(ctx, "SearchItems")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var items []godbus.ObjectPath
	call := c.object(collection).CallWithContext(ctx, CollectionIface+".SearchItems", 0, attributes)
	if err := call.Store(&items); err != nil {
		return nil, fmt.Errorf("search items (call_id=%s): %w", id, err)
	}
	return items, nil
}

// CreateItem creates (or, with replace, overwrites) an item in collection.
// It returns (itemPath, promptPath).
func (c *Client) CreateItem(ctx context.Context, collection godbus.ObjectPath, label string, attributes Attributes, secret Secret, replace bool) (godbus.ObjectPath, godbus.ObjectPath, error) {
	id := c.logCall(ctx, "CreateItem")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	properties := map[string]godbus.Variant{
		ItemIface + ".Label":      godbus.MakeVariant(label),
		ItemIface + ".Attributes": godbus.MakeVariant(attributes),
	}
	var item, prompt godbus.ObjectPath
	call := c.object(collection).CallWithContext(ctx, CollectionIface+".CreateItem", 0, properties, secret, replace)
	if err := call.Store(&item, &prompt); err != nil {
		return "", "", fmt.Errorf("create item (call_id=%s): %w", id, err)
	}
	return item, prompt, nil
}

// GetSecret retrieves the (still possibly encrypted) secret tuple for item
// under session.
func (c *Client) GetSecret(ctx context.Context, item, session godbus.ObjectPath) (Secret, error) {
	id := c.logCall(ctx, "GetSecret")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var secret Secret
	call := c.object(item).CallWithContext(ctx, ItemIface+".GetSecret", 0, session)
	if err := call.Store(&secret); err != nil {
		return Secret{}, fmt.Errorf("get secret (call_id=%s): %w", id, err)
	}
	return secret, nil
}

// DeleteItem deletes item. It returns the prompt path.
func (c *Client) DeleteItem(ctx context.Context, item godbus.ObjectPath) (godbus.ObjectPath, error) {
	id := c.logCall(ctx, "Delete")
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var prompt godbus.ObjectPath
	call := c.object(item).CallWithContext(ctx, ItemIface+".Delete", 0)
	if err := call.Store(&prompt); err != nil {
		return "", fmt.Errorf("delete item (call_id=%s): %w", id, err)
	}
	return prompt, nil
}

// SignalChannel subscribes the connection to D-Bus signals and returns the
// channel they arrive on, for the prompt handler to watch.
func (c *Client) SignalChannel(buffer int) chan *godbus.Signal {
	ch := make(chan *godbus.Signal, buffer)
	c.conn.Signal(ch)
	return ch
}

// RemoveSignalChannel unsubscribes a channel previously returned by
// SignalChannel.
func (c *Client) RemoveSignalChannel(ch chan *godbus.Signal) {
	c.conn.RemoveSignal(ch)
}

// AddPromptMatch subscribes to Completed signals from the given prompt
// object path.
func (c *Client) AddPromptMatch(promptPath godbus.ObjectPath) error {
	return c.conn.AddMatchSignal(
		godbus.WithMatchObjectPath(promptPath),
		godbus.WithMatchInterface(PromptIface),
		godbus.WithMatchMember("Completed"),
	)
}

// RemovePromptMatch tears down a match added by AddPromptMatch. Cleanup
// failures are reported independently of the primary result (spec.md §7).
func (c *Client) RemovePromptMatch(promptPath godbus.ObjectPath) error {
	return c.conn.RemoveMatchSignal(
		godbus.WithMatchObjectPath(promptPath),
		godbus.WithMatchInterface(PromptIface),
		godbus.WithMatchMember("Completed"),
	)
}

// CallPrompt invokes Prompt.Prompt("") on promptPath to ask the daemon to
// begin (or short-circuit) user interaction.
func (c *Client) CallPrompt(ctx context.Context, promptPath godbus.ObjectPath) error {
	call := c.object(promptPath).CallWithContext(ctx, PromptIface+".Prompt", 0, "")
	return call.Err
}
