package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/annelo/go-tile-server/internal/item"
	"github.com/annelo/go-tile-server/internal/packet"
	"github.com/annelo/go-tile-server/internal/service"
)

var (
	serverAddr   = flag.String("addr", "localhost:50051", "gRPC адрес сервера")
	clientsCount = flag.Int("n", 100, "Количество эмулируемых клиентов")
	duration     = flag.Duration("duration", 30*time.Second, "Длительность теста")
	worldName    = flag.String("world", "START", "Мир, в который заходят боты")
	firstUser    = flag.Int("user", 1000, "Идентификатор первого бота")
)

// Счетчики для итоговой сводки
var (
	actsSent   atomic.Int64
	actsFailed atomic.Int64
	eventsRecv atomic.Int64
)

func main() {
	flag.Parse()
	log.Printf("Запускаем bClient: %d клиентов на %s в течение %s", *clientsCount, *serverAddr, *duration)

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	client := service.NewClient(conn)

	var wg sync.WaitGroup
	stopCtx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	for i := 0; i < *clientsCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(stopCtx, client, id)
		}(i)
	}

	wg.Wait()
	log.Printf("bClient завершил работу: действий=%d ошибок=%d событий=%d",
		actsSent.Load(), actsFailed.Load(), eventsRecv.Load())
}

// bot - состояние одного эмулируемого клиента
type bot struct {
	id   int
	user int32

	mu   sync.Mutex
	x, y int
}

func (b *bot) pos() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.x, b.y
}

func (b *bot) moved(x, y int) {
	b.mu.Lock()
	b.x, b.y = x, y
	b.mu.Unlock()
}

func runClient(ctx context.Context, client *service.Client, id int) {
	b := &bot{id: id, user: int32(*firstUser + id)}

	session, err := client.Join(ctx, packet.JoinRequest{
		User:  b.user,
		World: *worldName,
		Name:  fmt.Sprintf("bot-%d", id),
	}.Encode())
	if err != nil {
		log.Printf("[client %d] join error: %v", id, err)
		return
	}
	defer func() {
		// Контекст теста уже истек, выходим отдельным
		leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Leave(leaveCtx, session); err != nil {
			log.Printf("[client %d] leave error: %v", id, err)
		}
	}()

	stream, err := client.Events(ctx, session)
	if err != nil {
		log.Printf("[client %d] stream error: %v", id, err)
		return
	}
	go b.listen(stream)

	randSrc := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			x, y := b.pos()
			// случайное движение на соседнюю клетку
			req := packet.ActionRequest{
				Intent: packet.IntentMove,
				X:      max(x+randSrc.Intn(3)-1, 0),
				Y:      max(y+randSrc.Intn(3)-1, 0),
			}
			// действие с клеткой 10% шанс
			if randSrc.Intn(10) == 0 {
				req.Intent = packet.IntentPunch
				if randSrc.Intn(2) == 0 {
					req.Intent = packet.IntentPlace
					req.Item = item.Dirt
				}
			}
			b.act(ctx, client, session, req)
		}
	}
}

func (b *bot) act(ctx context.Context, client *service.Client, session string, req packet.ActionRequest) {
	actsSent.Add(1)
	if err := client.Act(ctx, session, req.Encode()); err != nil && ctx.Err() == nil {
		actsFailed.Add(1)
	}
}

// listen читает события мира и следит за своей позицией
func (b *bot) listen(stream *service.EventStream) {
	for {
		msg, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) && stream.Context().Err() == nil {
				log.Printf("[client %d] recv error: %v", b.id, err)
			}
			return
		}
		eventsRecv.Add(1)

		kind, r, err := packet.Open(msg)
		if err != nil || kind != packet.KindActorMove {
			continue
		}
		if user := r.I32(); user == b.user {
			x, y := int(r.U16()), int(r.U16())
			if r.Err() == nil {
				b.moved(x, y)
			}
		}
	}
}
