package server

import (
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// connHandler はワーカーが1接続を処理するための関数
type connHandler func(log *logrus.Entry, conn net.Conn)

// workerPool は受け付け済み接続の有界キューと固定数のワーカーを持つ
//
// ワーカーはキューからの取り出しでのみブロックし、取り出した接続を
// 最後まで処理してから次の接続を取りに行く。投入側は決してブロックしない。
type workerPool struct {
	queue chan net.Conn
	size  int
	log   *logrus.Logger
	wg    sync.WaitGroup
}

// newWorkerPool はワーカープールを作成する
func newWorkerPool(size, queueSize int, log *logrus.Logger) *workerPool {
	return &workerPool{
		queue: make(chan net.Conn, queueSize),
		size:  size,
		log:   log,
	}
}

// start はワーカーを起動する
func (p *workerPool) start(handle connHandler) {
	for i := 1; i <= p.size; i++ {
		p.wg.Add(1)
		go p.worker(i, handle)
	}
}

// worker はキューから接続を取り出して処理し続ける
func (p *workerPool) worker(id int, handle connHandler) {
	defer p.wg.Done()
	wlog := p.log.WithField("worker", fmt.Sprintf("Worker-%d", id))
	for conn := range p.queue {
		p.serve(wlog, conn, handle)
	}
}

// serve は1接続の処理をpanic回収付きで実行する
// 処理中の例外はワーカーを落とさず、ログに残して接続を閉じるだけに留める
func (p *workerPool) serve(wlog *logrus.Entry, conn net.Conn, handle connHandler) {
	defer func() {
		if r := recover(); r != nil {
			wlog.Errorf("接続処理中のエラー: %v", r)
			conn.Close()
		}
	}()
	handle(wlog, conn)
}

// submit は接続をキューへ投入する
// キューが満杯の場合はブロックせず即座にfalseを返す
func (p *workerPool) submit(conn net.Conn) bool {
	select {
	case p.queue <- conn:
		return true
	default:
		return false
	}
}

// stop はキューを閉じ、全ワーカーの終了を待つ
// キューに残っている接続は処理されてから終了する
func (p *workerPool) stop() {
	close(p.queue)
	p.wg.Wait()
}
