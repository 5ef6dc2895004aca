package pipeline

import (
	"log"
	"time"

	"github.com/char5742/abs2rel/internal/event"
	"github.com/char5742/abs2rel/internal/features"
	"github.com/char5742/abs2rel/internal/processor"
)

// Pipeline は1つのマッピング分のイベント転送ループ
// 入力デバイスからイベントをレポート単位で読み取り、
// プロセッサを通した結果を仮想デバイスへ書き出す
type Pipeline struct {
	proc *processor.Processor
	src  features.TouchPad
	sink features.Mouse

	// レポート1回分のイベントバッファ
	batch []event.Event
}

// New は新しいPipelineを作成する
func New(proc *processor.Processor, src features.TouchPad, sink features.Mouse) *Pipeline {
	return &Pipeline{
		proc:  proc,
		src:   src,
		sink:  sink,
		batch: make([]event.Event, 0, 8),
	}
}

// Run はstopChanが閉じられるまでイベントを転送し続ける
// イベントの配送はこのゴルーチン上で直列に行われるため
// プロセッサ側でのロックは不要
func (pl *Pipeline) Run(stopChan <-chan struct{}) {
	for {
		select {
		case <-stopChan:
			return
		default:
			raw, err := pl.src.ReadEvent()
			if err != nil {
				// 非ブロッキング読み取りのため、イベントがない間は少し待つ
				time.Sleep(100 * time.Microsecond)
				continue
			}

			// SYN_REPORTでレポートが確定する
			if raw.Type == event.Syn && raw.Code == event.SynReport {
				pl.Flush()
				continue
			}

			pl.batch = append(pl.batch, event.Event{
				Type:  raw.Type,
				Code:  raw.Code,
				Value: raw.Value,
			})
		}
	}
}

// Flush はバッファ済みのレポート1回分をプロセッサへ通し、
// 生き残ったイベントをシンクへ書き出す
// レポート末尾のイベントに同期フラグを立て、フラグが生き残った場合は
// その直後にSYN_REPORTを発行する。末尾が抑制された場合でも、
// 何か書き込んだレポートには必ず1回SYN_REPORTを発行する
func (pl *Pipeline) Flush() {
	if len(pl.batch) == 0 {
		return
	}

	pl.batch[len(pl.batch)-1].Sync = true

	wrote := false
	synced := false
	for i := range pl.batch {
		ev := &pl.batch[i]

		if pl.proc.HandleEvent(ev) == processor.Stop {
			// 抑制されたイベントは下流へ流さない
			continue
		}

		if err := pl.sink.Emit(*ev); err != nil {
			log.Printf("イベントの書き込みに失敗しました: %v", err)
			continue
		}
		wrote = true

		if ev.Sync {
			if err := pl.sink.Sync(); err != nil {
				log.Printf("SYN_REPORTの発行に失敗しました: %v", err)
			}
			synced = true
		}
	}

	// 末尾イベントが抑制されて同期フラグごと消えた場合の補完
	if wrote && !synced {
		if err := pl.sink.Sync(); err != nil {
			log.Printf("SYN_REPORTの発行に失敗しました: %v", err)
		}
	}

	pl.batch = pl.batch[:0]
}
