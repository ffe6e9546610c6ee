package message

import "github.com/hitoshi/messagely/internal/model"

// ToDetail は結合行を送信者・受信者を入れ子にした詳細形式に変換する。
func ToDetail(row model.MessageRow) model.MessageDetail {
	return model.MessageDetail{
		ID:       row.ID,
		Body:     row.Body,
		SentAt:   row.SentAt,
		ReadAt:   row.ReadAt,
		FromUser: row.From,
		ToUser:   row.To,
	}
}

// ToSent は結合行を送信済み一覧の形式に変換する。相手として受信者を含める。
func ToSent(row model.MessageRow) model.SentMessage {
	return model.SentMessage{
		ID:     row.ID,
		Body:   row.Body,
		SentAt: row.SentAt,
		ReadAt: row.ReadAt,
		ToUser: row.To,
	}
}

// ToReceived は結合行を受信一覧の形式に変換する。相手として送信者を含める。
func ToReceived(row model.MessageRow) model.ReceivedMessage {
	return model.ReceivedMessage{
		ID:       row.ID,
		Body:     row.Body,
		SentAt:   row.SentAt,
		ReadAt:   row.ReadAt,
		FromUser: row.From,
	}
}
