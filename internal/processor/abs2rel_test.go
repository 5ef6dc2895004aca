package processor

import (
	"testing"

	"github.com/char5742/abs2rel/internal/event"
)

// touchStart はタッチ開始イベントを処理させるヘルパー
func touchStart(t *testing.T, p *Processor) {
	t.Helper()
	ev := event.Event{Type: event.Key, Code: event.BtnTouch, Value: 1}
	p.HandleEvent(&ev)
}

// touchEnd はタッチ終了イベントを処理させるヘルパー
func touchEnd(t *testing.T, p *Processor) {
	t.Helper()
	ev := event.Event{Type: event.Key, Code: event.BtnTouch, Value: 0}
	p.HandleEvent(&ev)
}

// absEvent は絶対座標イベントを作る
func absEvent(code uint16, value int32) event.Event {
	return event.Event{Type: event.Abs, Code: code, Value: value, Sync: true}
}

func TestFirstSampleIsSuppressed(t *testing.T) {
	p := New(Config{})
	touchStart(t, p)

	ev := absEvent(event.AbsX, 100)
	if got := p.HandleEvent(&ev); got != Stop {
		t.Fatalf("最初のサンプルの処理結果 = %v, want Stop", got)
	}
	if ev.Code != event.CodeInvalid {
		t.Errorf("抑制イベントのコード = %#x, want %#x", ev.Code, event.CodeInvalid)
	}
	if ev.Sync {
		t.Error("抑制イベントの同期フラグが落ちていない")
	}
}

func TestSmoothingSequence(t *testing.T) {
	// 仕様のシナリオ: 100 → 抑制, 110 → (10+0)>>1=5, 115 → (5+10)>>1=7
	p := New(Config{})
	touchStart(t, p)

	steps := []struct {
		value int32
		want  Disposition
		delta int32
	}{
		{100, Stop, 0},
		{110, Continue, 5},
		{115, Continue, 7},
	}

	for i, step := range steps {
		ev := absEvent(event.AbsX, step.value)
		got := p.HandleEvent(&ev)
		if got != step.want {
			t.Fatalf("サンプル#%d(%d) の処理結果 = %v, want %v", i, step.value, got, step.want)
		}
		if got != Continue {
			continue
		}
		if ev.Type != event.Rel || ev.Code != event.RelX {
			t.Errorf("サンプル#%d: 変換後のイベント = type %#x code %#x, want REL_X", i, ev.Type, ev.Code)
		}
		if ev.Value != step.delta {
			t.Errorf("サンプル#%d: 平滑化デルタ = %d, want %d", i, ev.Value, step.delta)
		}
	}
}

func TestNegativeDeltaRoundsDown(t *testing.T) {
	// 500 → 498 は生デルタ-2、(-2+0)>>1 = -1（算術シフト）
	p := New(Config{})
	touchStart(t, p)

	ev := absEvent(event.AbsY, 500)
	p.HandleEvent(&ev)

	ev = absEvent(event.AbsY, 498)
	if got := p.HandleEvent(&ev); got != Continue {
		t.Fatalf("2番目のサンプルの処理結果 = %v, want Continue", got)
	}
	if ev.Code != event.RelY {
		t.Errorf("変換後のコード = %#x, want REL_Y", ev.Code)
	}
	if ev.Value != -1 {
		t.Errorf("平滑化デルタ = %d, want -1", ev.Value)
	}
}

func TestAxesAreIndependent(t *testing.T) {
	p := New(Config{})
	touchStart(t, p)

	// X軸に2サンプル入れてもY軸の最初のサンプルは抑制される
	ev := absEvent(event.AbsX, 100)
	p.HandleEvent(&ev)
	ev = absEvent(event.AbsX, 120)
	p.HandleEvent(&ev)

	ev = absEvent(event.AbsY, 300)
	if got := p.HandleEvent(&ev); got != Stop {
		t.Errorf("Y軸の最初のサンプルの処理結果 = %v, want Stop", got)
	}
}

func TestDeltaWrapsAround16Bit(t *testing.T) {
	// 65500 → 10 はuint16のラップアラウンドで+46と解釈される
	p := New(Config{})
	touchStart(t, p)

	ev := absEvent(event.AbsX, 65500)
	p.HandleEvent(&ev)

	ev = absEvent(event.AbsX, 10)
	if got := p.HandleEvent(&ev); got != Continue {
		t.Fatalf("処理結果 = %v, want Continue", got)
	}
	if want := int32(23); ev.Value != want { // (46+0)>>1
		t.Errorf("平滑化デルタ = %d, want %d", ev.Value, want)
	}
}

func TestSmoothingSumIsWidened(t *testing.T) {
	// 生デルタ同士の加算は16ビットで折り返さず、広い型で行われる
	// （16ビットで加算すると30000+30000が-5536に化けてしまう）
	p := New(Config{})
	touchStart(t, p)

	ev := absEvent(event.AbsX, 0)
	p.HandleEvent(&ev) // 抑制

	ev = absEvent(event.AbsX, 30000)
	p.HandleEvent(&ev) // 生デルタ30000

	ev = absEvent(event.AbsX, 60000)
	if got := p.HandleEvent(&ev); got != Continue {
		t.Fatalf("処理結果 = %v, want Continue", got)
	}
	// 生デルタ30000 + 直前デルタ30000 = 60000 → >>1 = 30000
	if want := int32(30000); ev.Value != want {
		t.Errorf("平滑化デルタ = %d, want %d", ev.Value, want)
	}
}

func TestTouchRestartResetsAxisHistory(t *testing.T) {
	p := New(Config{})
	touchStart(t, p)

	ev := absEvent(event.AbsX, 100)
	p.HandleEvent(&ev)
	ev = absEvent(event.AbsX, 150)
	p.HandleEvent(&ev)

	// タッチ終了直後の再タッチで履歴が消えること
	touchEnd(t, p)
	touchStart(t, p)

	ev = absEvent(event.AbsX, 200)
	if got := p.HandleEvent(&ev); got != Stop {
		t.Errorf("再タッチ後の最初のサンプルの処理結果 = %v, want Stop", got)
	}
}

func TestTouchEndKeepsAxisHistory(t *testing.T) {
	// 終了時はリセットされない（次の開始時にリセットされる）ため
	// タッチ終了だけでは履歴は残るが、タッチ外では変換自体が行われない
	p := New(Config{})
	touchStart(t, p)

	ev := absEvent(event.AbsX, 100)
	p.HandleEvent(&ev)

	touchEnd(t, p)

	ev = absEvent(event.AbsX, 110)
	if got := p.HandleEvent(&ev); got != Continue {
		t.Fatalf("タッチ外のサンプルの処理結果 = %v, want Continue", got)
	}
	if ev.Type != event.Abs || ev.Code != event.AbsX || ev.Value != 110 {
		t.Errorf("タッチ外のサンプルが書き換えられた: %+v", ev)
	}
}

func TestAbsEventsIgnoredWhileNotTouching(t *testing.T) {
	p := New(Config{})

	ev := absEvent(event.AbsX, 123)
	if got := p.HandleEvent(&ev); got != Continue {
		t.Fatalf("処理結果 = %v, want Continue", got)
	}
	if ev.Type != event.Abs || ev.Value != 123 {
		t.Errorf("イベントが書き換えられた: %+v", ev)
	}

	// タッチ外のサンプルは軸履歴に影響しない
	touchStart(t, p)
	ev = absEvent(event.AbsX, 200)
	if got := p.HandleEvent(&ev); got != Stop {
		t.Errorf("タッチ開始後の最初のサンプルの処理結果 = %v, want Stop", got)
	}
}

func TestSuppressBtnTouch(t *testing.T) {
	p := New(Config{SuppressBtnTouch: true})

	ev := event.Event{Type: event.Key, Code: event.BtnTouch, Value: 1, Sync: true}
	if got := p.HandleEvent(&ev); got != Stop {
		t.Fatalf("タッチ開始の処理結果 = %v, want Stop", got)
	}
	if ev.Code != event.CodeInvalid || ev.Sync {
		t.Errorf("タッチ開始イベントが抑制済みとしてマークされていない: %+v", ev)
	}

	// 抑制されていても状態遷移は通常どおり行われる
	if !p.Touching() {
		t.Error("抑制時にもタッチ状態が更新されるべき")
	}
	sample := absEvent(event.AbsX, 100)
	if got := p.HandleEvent(&sample); got != Stop {
		t.Error("軸履歴のリセットが行われていない")
	}

	ev = event.Event{Type: event.Key, Code: event.BtnTouch, Value: 0, Sync: true}
	if got := p.HandleEvent(&ev); got != Stop {
		t.Errorf("タッチ終了の処理結果 = %v, want Stop", got)
	}
	if p.Touching() {
		t.Error("タッチ終了後もタッチ状態が残っている")
	}
}

func TestSuppressBtn0(t *testing.T) {
	tests := []struct {
		name     string
		suppress bool
		want     Disposition
	}{
		{name: "抑制あり", suppress: true, want: Stop},
		{name: "抑制なし", suppress: false, want: Continue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Config{SuppressBtn0: tt.suppress})
			touchStart(t, p)

			ev := event.Event{Type: event.Key, Code: event.Btn0, Value: 1, Sync: true}
			if got := p.HandleEvent(&ev); got != tt.want {
				t.Fatalf("BTN_0の処理結果 = %v, want %v", got, tt.want)
			}
			if tt.suppress && (ev.Code != event.CodeInvalid || ev.Sync) {
				t.Errorf("BTN_0イベントが抑制済みとしてマークされていない: %+v", ev)
			}

			// BTN_0はタッチ状態に影響しない
			if !p.Touching() {
				t.Error("BTN_0がタッチ状態を変更した")
			}
		})
	}
}

func TestOtherEventsPassThrough(t *testing.T) {
	p := New(Config{SuppressBtnTouch: true, SuppressBtn0: true})
	touchStart(t, p)

	tests := []struct {
		name string
		ev   event.Event
	}{
		{name: "他のキー", ev: event.Event{Type: event.Key, Code: event.MouseBtnLeft, Value: 1}},
		{name: "相対イベント", ev: event.Event{Type: event.Rel, Code: event.RelX, Value: 3}},
		{name: "他の絶対軸", ev: event.Event{Type: event.Abs, Code: 0x2f, Value: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.ev
			if got := p.HandleEvent(&ev); got != Continue {
				t.Fatalf("処理結果 = %v, want Continue", got)
			}
			if ev != tt.ev {
				t.Errorf("イベントが書き換えられた: %+v → %+v", tt.ev, ev)
			}
		})
	}
}
