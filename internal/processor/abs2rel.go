package processor

import "github.com/char5742/abs2rel/internal/event"

// Disposition はイベント処理後の伝播指示を表す
type Disposition int

const (
	// Continue はイベント（書き換え済みの場合あり）を下流へ伝播する
	Continue Disposition = iota
	// Stop はこのイベントの伝播を打ち切る
	Stop
)

// Config はフィルターインスタンスごとの設定
// インスタンスの生存期間中は不変
type Config struct {
	SuppressBtnTouch bool // BTN_TOUCHイベントを下流へ流さない
	SuppressBtn0     bool // BTN_0イベントを下流へ流さない
}

// axisState は1軸分の変換状態
// hasPrev がfalseの間は直前の有効サンプルが存在しない
// （座標空間と衝突する番兵値は使わず明示的なフラグで表現する）
type axisState struct {
	prevPos   uint16 // 直前の絶対座標
	prevDelta int16  // 直前の生デルタ（平滑化前）
	hasPrev   bool   // prevPos が有効か
}

// reset は軸の履歴を初期化する
func (a *axisState) reset() {
	a.hasPrev = false
	a.prevDelta = 0
}

// Processor は絶対座標の入力ストリームを相対移動へ変換するフィルター
// タッチ中のみ変換を行い、タッチ開始のたびに軸履歴をリセットする
// 1インスタンスにつき単一の接触ストリームを前提とし、
// 呼び出しはディスパッチャー側で直列化されていること
type Processor struct {
	cfg      Config
	touching bool
	axisX    axisState
	axisY    axisState
}

// New は新しいProcessorを作成する
func New(cfg Config) *Processor {
	return &Processor{cfg: cfg}
}

// HandleEvent は1つのイベントを処理し、伝播指示を返す
// イベントは変換・抑制のためにその場で書き換えられることがある
func (p *Processor) HandleEvent(ev *event.Event) Disposition {
	if ev.Type == event.Key {
		switch ev.Code {
		case event.BtnTouch:
			return p.handleBtnTouch(ev)
		case event.Btn0:
			return p.handleBtn0(ev)
		}
	}

	// 絶対座標イベントはタッチ中のみ変換する
	if !p.touching || ev.Type != event.Abs {
		return Continue
	}

	switch ev.Code {
	case event.AbsX:
		return p.processAxis(ev, &p.axisX, event.RelX)
	case event.AbsY:
		return p.processAxis(ev, &p.axisY, event.RelY)
	}

	return Continue
}

// Touching は現在タッチ中かどうかを返す
func (p *Processor) Touching() bool {
	return p.touching
}

// handleBtnTouch はタッチ開始/終了イベントを処理する
// 開始時にのみ軸履歴をリセットする（終了時はリセットしない）
func (p *Processor) handleBtnTouch(ev *event.Event) Disposition {
	if ev.Value != 0 {
		p.touching = true
		p.axisX.reset()
		p.axisY.reset()
	} else {
		p.touching = false
	}

	if p.cfg.SuppressBtnTouch {
		ev.Suppress()
		return Stop
	}
	return Continue
}

// handleBtn0 はBTN_0イベントを処理する
// タッチ状態や軸履歴には一切触れない
func (p *Processor) handleBtn0(ev *event.Event) Disposition {
	if p.cfg.SuppressBtn0 {
		ev.Suppress()
		return Stop
	}
	return Continue
}

// processAxis は1軸分の絶対座標サンプルを相対移動へ変換する
// リセット後の最初のサンプルは移動量を持たないため抑制する
func (p *Processor) processAxis(ev *event.Event, axis *axisState, relCode uint16) Disposition {
	value := uint16(ev.Value)

	if !axis.hasPrev {
		axis.prevPos = value
		axis.prevDelta = 0
		axis.hasPrev = true
		ev.Suppress()
		return Stop
	}

	// 16ビット符号付きのラップアラウンド演算でデルタを求める
	delta := int16(value - axis.prevPos)

	// 直前の生デルタとの平均による平滑化
	// 加算は広い型で行い、算術右シフト後に16ビットへ切り詰める
	smoothed := int16((int32(delta) + int32(axis.prevDelta)) >> 1)

	ev.Type = event.Rel
	ev.Code = relCode
	ev.Value = int32(smoothed)

	axis.prevDelta = delta
	axis.prevPos = value

	return Continue
}
