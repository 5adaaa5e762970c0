// Package bus implements the in-process publish/subscribe bus the ledcode
// services communicate over: a topic trie with retained messages, MQTT-style
// wildcard subscriptions ("+" one level, "#" the rest), and request/reply.
package bus

import (
	"context"
	"reflect"
	"sync"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path. Any comparable value works;
// services use strings for names and ints for capability ids. The strings
// "+" and "#" are wildcards, valid in subscription topics only: "+" matches
// exactly one level, "#" matches all remaining levels (including none) and
// must be the last token.
type Token = any

const (
	tokPlus = "+"
	tokHash = "#"
)

// T validates that v can be used as a topic token (it must be comparable)
// and returns it. It panics otherwise; topics are built at startup, so a
// bad token is a programming error, not a runtime condition.
func T(v Token) Token {
	if v == nil || !reflect.TypeOf(v).Comparable() {
		panic("bus: topic token is not comparable")
	}
	return v
}

// Topic is a sequence of tokens.
type Topic []Token

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if n.children == nil {
		if !create {
			return nil
		}
		n.children = make(map[Token]*node)
	}
	c, ok := n.children[tok]
	if !ok {
		if !create {
			return nil
		}
		c = &node{}
		n.children[tok] = c
	}
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu   sync.Mutex
	root *node
	qLen int
}

// NewBus creates a bus with the given per-subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

// NewMessage builds a message ready for Publish.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// push delivers to one subscription queue, dropping the oldest message when
// the queue is full. Slow consumers lose history, never block publishers.
func push(ch chan *Message, msg *Message) {
	select {
	case ch <- msg:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

// Publish delivers a message to every subscription matching its topic and
// stores or clears the retained copy. Published topics must be concrete.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deliver(b.root, msg.Topic, msg)

	if !msg.Retained {
		return
	}
	// Retained messages live at their concrete path; a nil payload clears.
	n := b.root
	for _, tok := range msg.Topic {
		n = n.child(tok, true)
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

func deliver(n *node, topic Topic, msg *Message) {
	// "#" at this level matches the whole remainder, empty included.
	if h := n.child(tokHash, false); h != nil {
		for _, sub := range h.subs {
			push(sub.ch, msg)
		}
	}
	if len(topic) == 0 {
		for _, sub := range n.subs {
			push(sub.ch, msg)
		}
		return
	}
	if c := n.child(topic[0], false); c != nil {
		deliver(c, topic[1:], msg)
	}
	if c := n.child(tokPlus, false); c != nil {
		deliver(c, topic[1:], msg)
	}
}

func (b *Bus) addSubscription(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range topic {
		n = n.child(T(tok), true)
	}
	n.subs = append(n.subs, sub)

	// Deliver every retained message the subscription topic matches.
	deliverRetained(b.root, topic, sub.ch)
}

func deliverRetained(n *node, topic Topic, ch chan *Message) {
	if len(topic) == 0 {
		if n.retained != nil {
			push(ch, n.retained)
		}
		return
	}
	switch topic[0] {
	case tokHash:
		collectRetained(n, ch)
	case tokPlus:
		for _, child := range n.children {
			deliverRetained(child, topic[1:], ch)
		}
	default:
		if c := n.child(topic[0], false); c != nil {
			deliverRetained(c, topic[1:], ch)
		}
	}
}

// collectRetained pushes the retained messages of n and its whole subtree;
// "#" matches zero or more levels.
func collectRetained(n *node, ch chan *Message) {
	if n.retained != nil {
		push(ch, n.retained)
	}
	for _, child := range n.children {
		collectRetained(child, ch)
	}
}

func (b *Bus) unsubscribe(topic Topic, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, t := range topic {
		c := n.child(t, false)
		if c == nil {
			return
		}
		stack = append(stack, n)
		n = c
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
	seq  int // reply topic counter
}

// NewConnection creates a connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

// NewMessage builds a message ready for Publish.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Reply answers a request on its ReplyTo topic. Requests without a ReplyTo
// are fire-and-forget; Reply is then a no-op.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// Request stamps a unique ReplyTo onto msg, subscribes to it, and publishes
// the request. The caller owns the returned subscription and must
// unsubscribe it when done.
func (c *Connection) Request(msg *Message) *Subscription {
	c.mu.Lock()
	c.seq++
	msg.ReplyTo = Topic{"$reply", c.id, c.seq}
	c.mu.Unlock()

	sub := c.Subscribe(msg.ReplyTo)
	c.bus.Publish(msg)
	return sub
}

// RequestWait performs Request and blocks for the first reply or context
// cancellation.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case reply := <-sub.ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(topic, sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub.topic, sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub.topic, sub)
		close(sub.ch)
	}
}
