package event

// イベントタイプの定数（input-event-codes.hより）
const (
	Syn = 0x00 // 同期イベント
	Key = 0x01 // キーイベント
	Rel = 0x02 // 相対座標イベント
	Abs = 0x03 // 絶対座標イベント

	RelX = 0x00 // X軸の相対移動
	RelY = 0x01 // Y軸の相対移動

	AbsX = 0x00 // X軸の絶対座標
	AbsY = 0x01 // Y軸の絶対座標

	SynReport = 0 // イベント報告の同期

	Btn0          = 0x100 // 汎用ボタン0
	MouseBtnLeft  = 0x110 // マウス左ボタン
	MouseBtnRight = 0x111 // マウス右ボタン
	BtnTouch      = 0x14a // タッチイベント
)

// CodeInvalid は抑制済みイベントを示す予約コード
// 実在のイベントコードと衝突しない値を使用する
const CodeInvalid = 0xFFF

// Event はパイプライン内を流れる入力イベント
type Event struct {
	Type  uint16 // イベントタイプ
	Code  uint16 // イベントコード
	Value int32  // イベント値
	Sync  bool   // このイベントの直後にSYN_REPORTを発行するか
}

// Suppress はイベントを抑制済みとしてマークする
// コードを無効値に書き換え、同期フラグを落とすことで
// 下流がこのイベントを完全なレポートとして扱わないようにする
func (e *Event) Suppress() {
	e.Code = CodeInvalid
	e.Sync = false
}
