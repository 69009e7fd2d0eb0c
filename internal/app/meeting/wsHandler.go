package meeting

import (
	"net/http"
	"sync"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"github.com/gorilla/websocket"
)

var idConnectionMap = make(map[string]map[WsConn]bool)
var connectionIDMap = make(map[WsConn]string)
var mapLock = sync.Mutex{}

//WsConn is the subscriber connection abstraction
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	}}

type websocketHandler struct {
	data *ServiceData
}

func (h websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cmdapp.Log.Infof("ws request from %s", r.Host)

	c, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		cmdapp.Log.Error(err)
		return
	}
	go handleConnection(c)
}

// handleConnection reads job IDs the client wants to follow.
// Each received message replaces the subscription
func handleConnection(conn WsConn) {
	defer deleteConnection(conn)
	defer conn.Close()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			cmdapp.Log.Infof("ws connection closed: %s", err.Error())
			break
		}
		saveConnection(conn, string(message))
	}
}

func deleteConnection(conn WsConn) {
	mapLock.Lock()
	defer mapLock.Unlock()
	deleteConnectionNoSync(conn)
}

func deleteConnectionNoSync(conn WsConn) {
	id, found := connectionIDMap[conn]
	if found {
		conns, found := idConnectionMap[id]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(idConnectionMap, id)
			}
		}
	}
	delete(connectionIDMap, conn)
}

func saveConnection(conn WsConn, id string) {
	mapLock.Lock()
	defer mapLock.Unlock()
	deleteConnectionNoSync(conn)
	connectionIDMap[conn] = id
	conns, found := idConnectionMap[id]
	if !found {
		conns = map[WsConn]bool{}
		idConnectionMap[id] = conns
	}
	conns[conn] = true
	cmdapp.Log.Infof("ws subscriptions: %d", len(connectionIDMap))
}

func getConnections(id string) (map[WsConn]bool, bool) {
	mapLock.Lock()
	defer mapLock.Unlock()
	conns, found := idConnectionMap[id]
	if !found {
		return nil, false
	}
	res := make(map[WsConn]bool, len(conns))
	for c := range conns {
		res[c] = true
	}
	return res, true
}
