package features

import (
	"encoding/binary"
	"fmt"
	"os"
	"syscall"

	"github.com/char5742/abs2rel/internal/consts"
	"github.com/char5742/abs2rel/internal/types"
	"github.com/char5742/abs2rel/internal/utils"
)

// 物理タッチパッド（絶対座標入力デバイス）を扱うインターフェース
type TouchPad interface {
	// イベントを1つ読み取る
	ReadEvent() (types.Event, error)
	// デバイスを専有する
	Grab() error
	// デバイスの専有を解除する
	Release() error
	Close() error
}

type absTouchPad struct {
	file    *os.File
	grabbed bool
}

// 指定されたパスでタッチパッドを開く
func OpenTouchPad(path string) (TouchPad, error) {
	f, err := os.OpenFile(path, syscall.O_RDONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, fmt.Errorf("デバイスファイルを開くのに失敗しました: %w", err)
	}
	return &absTouchPad{file: f}, nil
}

// ReadEvent はデバイスからイベントを1つ読み取る
// 非ブロッキングモードのため、イベントがない場合はエラーを返す
func (t *absTouchPad) ReadEvent() (types.Event, error) {
	var e types.Event
	size := binary.Size(e)
	buf := make([]byte, size)

	if _, err := t.file.Read(buf); err != nil {
		return e, err
	}

	e.Time.Sec = int64(binary.LittleEndian.Uint64(buf[0:8]))
	e.Time.Usec = int64(binary.LittleEndian.Uint64(buf[8:16]))
	e.Type = binary.LittleEndian.Uint16(buf[16:18])
	e.Code = binary.LittleEndian.Uint16(buf[18:20])
	e.Value = int32(binary.LittleEndian.Uint32(buf[20:24]))

	return e, nil
}

func (t *absTouchPad) Grab() error {
	if t.grabbed {
		return nil
	}
	if err := utils.IOCtl(t.file, consts.EVIOCGRAB, 1); err != nil {
		return fmt.Errorf("failed to grab device: %w", err)
	}
	t.grabbed = true
	return nil
}

func (t *absTouchPad) Release() error {
	if !t.grabbed {
		return nil
	}
	if err := utils.IOCtl(t.file, consts.EVIOCGRAB, 0); err != nil {
		return fmt.Errorf("failed to release device: %w", err)
	}
	t.grabbed = false
	return nil
}

func (t *absTouchPad) Close() error {
	_ = t.Release()
	return t.file.Close()
}
