package types

import "syscall"

// Event はカーネルとやり取りする入力イベントのワイヤ形式
type Event struct {
	Time  syscall.Timeval // イベント発生時刻
	Type  uint16          // イベントタイプ
	Code  uint16          // イベントコード
	Value int32           // イベント値
}
