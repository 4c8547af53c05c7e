package protocol

import (
	"encoding/json"
	"testing"

	"github.com/broadside/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())
	assert.False(t, c.Binary())

	c, err = NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = NewCodec("msgpack")
	require.NoError(t, err)
	assert.True(t, c.Binary())

	_, err = NewCodec("xml")
	assert.Error(t, err)
}

func TestJSONCodec_EncodeStringifiesData(t *testing.T) {
	frame, err := JSONCodec{}.Encode(TypeTurn, Turn{CurrentPlayer: "p1"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(frame, &raw))
	assert.Equal(t, "turn", raw["type"])
	assert.Equal(t, float64(0), raw["id"])
	assert.Equal(t, `{"currentPlayer":"p1"}`, raw["data"])
}

func TestJSONCodec_Decode(t *testing.T) {
	c := JSONCodec{}

	t.Run("string data", func(t *testing.T) {
		msg, err := c.Decode([]byte(`{"type":"reg","data":"{\"name\":\"alice\",\"password\":\"secret\"}","id":0}`))
		require.NoError(t, err)
		assert.Equal(t, TypeReg, msg.Type)

		var req RegRequest
		require.NoError(t, DecodePayload(c, msg, &req))
		assert.Equal(t, RegRequest{Name: "alice", Password: "secret"}, req)
	})

	t.Run("inline object data", func(t *testing.T) {
		msg, err := c.Decode([]byte(`{"type":"attack","data":{"gameId":"g1","x":3,"y":4,"indexPlayer":"p1"},"id":0}`))
		require.NoError(t, err)

		var req AttackRequest
		require.NoError(t, DecodePayload(c, msg, &req))
		assert.Equal(t, ID("g1"), req.GameID)
		assert.Equal(t, 3, req.X)
		assert.Equal(t, 4, req.Y)
	})

	t.Run("empty data", func(t *testing.T) {
		msg, err := c.Decode([]byte(`{"type":"create_room","data":"","id":0}`))
		require.NoError(t, err)
		assert.Empty(t, msg.Data)

		var req RegRequest
		require.NoError(t, DecodePayload(c, msg, &req))
		assert.Zero(t, req)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := c.Decode([]byte(`not json`))
		assert.ErrorIs(t, err, ErrMalformed)

		_, err = c.Decode([]byte(`{"data":""}`))
		assert.ErrorIs(t, err, ErrMalformed)

		msg, err := c.Decode([]byte(`{"type":"reg","data":"{broken"}`))
		require.NoError(t, err)
		var req RegRequest
		assert.ErrorIs(t, DecodePayload(c, msg, &req), ErrMalformed)
	})
}

func TestID_AcceptsNumbers(t *testing.T) {
	var req AddUserToRoomRequest
	require.NoError(t, json.Unmarshal([]byte(`{"indexRoom":7}`), &req))
	assert.Equal(t, ID("7"), req.IndexRoom)

	require.NoError(t, json.Unmarshal([]byte(`{"indexRoom":"abc"}`), &req))
	assert.Equal(t, ID("abc"), req.IndexRoom)

	require.NoError(t, json.Unmarshal([]byte(`{"indexRoom":null}`), &req))
	assert.Equal(t, ID(""), req.IndexRoom)

	assert.Error(t, json.Unmarshal([]byte(`{"indexRoom":true}`), &req))
}

func TestMsgpackCodec_RoundTrip(t *testing.T) {
	c := MsgpackCodec{}
	ships := []core.ShipSpec{
		{Position: core.Position{X: 1, Y: 2}, Direction: true, Length: 3, Type: core.ShipMedium},
	}

	frame, err := c.Encode(TypeAddShips, AddShipsRequest{GameID: "g1", Ships: ships, IndexPlayer: "p2"})
	require.NoError(t, err)

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeAddShips, msg.Type)

	var req AddShipsRequest
	require.NoError(t, DecodePayload(c, msg, &req))
	assert.Equal(t, ID("g1"), req.GameID)
	assert.Equal(t, ID("p2"), req.IndexPlayer)
	assert.Equal(t, ships, req.Ships)
}

func TestMsgpackCodec_PayloadUsesJSONNames(t *testing.T) {
	frame, err := MsgpackCodec{}.Encode(TypeFinish, Finish{WinPlayer: "p1"})
	require.NoError(t, err)

	var env struct {
		Type string         `msgpack:"type"`
		Data map[string]any `msgpack:"data"`
	}
	require.NoError(t, msgpack.Unmarshal(frame, &env))
	assert.Equal(t, "finish", env.Type)
	assert.Equal(t, "p1", env.Data["winPlayer"])
}

func TestMsgpackCodec_NilPayload(t *testing.T) {
	c := MsgpackCodec{}
	frame, err := c.Encode(TypeCreateRoom, nil)
	require.NoError(t, err)

	msg, err := c.Decode(frame)
	require.NoError(t, err)
	assert.Empty(t, msg.Data)

	_, err = c.Decode([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFromEvent(t *testing.T) {
	ships := []core.ShipSpec{{Position: core.Position{X: 2, Y: 3}, Length: 1, Type: core.ShipSmall}}
	typ, payload := FromEvent(core.MatchStarted{PlayerID: "p1", Ships: ships})
	assert.Equal(t, TypeStartGame, typ)
	assert.Equal(t, StartGame{Ships: ships, CurrentPlayerIndex: "p1"}, payload)

	typ, payload = FromEvent(core.AttackResult{AttackerID: "p1", Position: core.Position{X: 1, Y: 1}, Status: core.StatusKilled})
	assert.Equal(t, TypeAttack, typ)
	assert.Equal(t, AttackFeedback{Position: core.Position{X: 1, Y: 1}, CurrentPlayer: "p1", Status: core.StatusKilled}, payload)

	typ, payload = FromEvent(core.TurnChanged{PlayerID: "p2"})
	assert.Equal(t, TypeTurn, typ)
	assert.Equal(t, Turn{CurrentPlayer: "p2"}, payload)

	typ, payload = FromEvent(core.MatchFinished{WinnerID: "p1"})
	assert.Equal(t, TypeFinish, typ)
	assert.Equal(t, Finish{WinPlayer: "p1"}, payload)
}

func TestIsInput(t *testing.T) {
	for _, typ := range []string{TypeReg, TypeCreateRoom, TypeAddUserToRoom, TypeAddShips, TypeAttack, TypeRandomAttack} {
		assert.True(t, IsInput(typ), typ)
	}
	for _, typ := range []string{TypeUpdateWinners, TypeUpdateRoom, TypeCreateGame, TypeStartGame, TypeTurn, TypeFinish, TypeError, ""} {
		assert.False(t, IsInput(typ), typ)
	}
}
