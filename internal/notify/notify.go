package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/talkincode/auctions/config"
	"github.com/talkincode/auctions/internal/events"
	"github.com/talkincode/auctions/pkg/common"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message
type Sender interface {
	Send(msg Message) error
}

// DefaultSendTimeout bounds one SMTP delivery
const DefaultSendTimeout = 30 * time.Second

// ErrSendTimeout is returned when the relay does not finish in time. The
// abandoned session ends when the server drops the connection.
var ErrSendTimeout = errors.New("smtp send timed out")

// SMTPSender sends mail through an SMTP relay
type SMTPSender struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
	send    func(*gomail.Message) error
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	s := &SMTPSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		timeout: DefaultSendTimeout,
	}
	if cfg.Timeout > 0 {
		s.timeout = time.Duration(cfg.Timeout) * time.Second
	}
	s.send = func(m *gomail.Message) error { return s.dialer.DialAndSend(m) }
	return s
}

// Send gives up after the configured timeout so a hung relay cannot hold a
// worker forever.
func (s *SMTPSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	errc := make(chan error, 1)
	go func() { errc <- s.send(m) }()
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		return errors.Wrap(err, "smtp send")
	case <-timer.C:
		return ErrSendTimeout
	}
}

// NopSender only logs messages; used when mail is disabled
type NopSender struct{}

func (NopSender) Send(msg Message) error {
	zap.L().Debug("mail disabled, message dropped", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// NewSender picks the SMTP sender when mail is enabled
func NewSender(cfg config.MailConfig) Sender {
	if cfg.Enabled && cfg.Host != "" {
		return NewSMTPSender(cfg)
	}
	return NopSender{}
}

// defaultQueueSize is how many messages may wait for a free worker
const defaultQueueSize = 1024

// Notifier emails bidders about auction events. Event handlers only queue the
// message; a dispatcher hands queued messages to the worker pool. When the queue
// is full new messages are dropped.
type Notifier struct {
	pool   *ants.Pool
	sender Sender
	queue  chan Message
	done   chan struct{}
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewNotifier(sender Sender, workers int) (*Notifier, error) {
	return newNotifier(sender, workers, defaultQueueSize)
}

func newNotifier(sender Sender, workers, queueSize int) (*Notifier, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create notify pool")
	}
	n := &Notifier{
		pool:   pool,
		sender: sender,
		queue:  make(chan Message, queueSize),
		done:   make(chan struct{}),
	}
	go n.dispatch()
	return n, nil
}

func (n *Notifier) Attach(bus *events.Bus) error {
	if err := bus.Subscribe(events.TopicBidPlaced, n.onBidPlaced); err != nil {
		return err
	}
	return bus.Subscribe(events.TopicItemClosed, n.onItemClosed)
}

// onBidPlaced tells the previous top bidder they were outbid
func (n *Notifier) onBidPlaced(evt *events.BidPlaced) {
	prev := evt.Previous
	if prev == nil || prev.User == nil || prev.User.Email == "" || prev.UserID == evt.Bid.UserID {
		return
	}
	n.submit(Message{
		To:      prev.User.Email,
		Subject: fmt.Sprintf("You have been outbid on %s", evt.Item.Name),
		Body: fmt.Sprintf("Hi %s,\n\n%s placed a bid of %s on %s, above your bid of %s.\n",
			prev.User.Username, evt.Bidder.String(), common.FormatMoney(evt.Bid.Amount),
			evt.Item.Name, common.FormatMoney(prev.Amount)),
	})
}

// onItemClosed tells the winner the auction is over
func (n *Notifier) onItemClosed(evt *events.ItemClosed) {
	w := evt.Winner
	if w == nil || w.User == nil || w.User.Email == "" {
		return
	}
	n.submit(Message{
		To:      w.User.Email,
		Subject: fmt.Sprintf("You won %s", evt.Item.Name),
		Body: fmt.Sprintf("Hi %s,\n\nThe auction for %s has closed and your bid of %s won.\n",
			w.User.Username, evt.Item.Name, common.FormatMoney(w.Amount)),
	})
}

// submit never blocks the publisher
func (n *Notifier) submit(msg Message) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	n.wg.Add(1)
	select {
	case n.queue <- msg:
	default:
		n.wg.Done()
		zap.L().Warn("notification queue full, message dropped",
			zap.String("to", msg.To), zap.String("subject", msg.Subject))
	}
}

func (n *Notifier) dispatch() {
	defer close(n.done)
	for msg := range n.queue {
		m := msg
		err := n.pool.Submit(func() {
			defer n.wg.Done()
			if err := n.sender.Send(m); err != nil {
				zap.L().Error("send notification", zap.String("to", m.To), zap.Error(err))
			}
		})
		if err != nil {
			n.wg.Done()
			zap.L().Error("submit notification", zap.Error(err))
		}
	}
}

// Wait blocks until queued messages are delivered
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Release stops accepting messages, delivers what is queued and frees the pool
func (n *Notifier) Release() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	<-n.done
	n.wg.Wait()
	n.pool.Release()
}
