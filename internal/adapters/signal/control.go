package signal

func (ctl *SignalWSController) handlePing(sess *session) {
	ctl.sendJSON(sess, typeEvent{Type: evPong})
}

func (ctl *SignalWSController) handleWhoAmI(sess *session) {
	resp := whoAmIEvent{Type: evWhoAmI, SID: sess.sid}
	if p := sess.presence.Load(); p != nil {
		resp.ClientID = p.ClientID()
		resp.Room = p.Room()
		resp.Connected = p.IsConnected()
	}
	ctl.sendJSON(sess, resp)
}

func (ctl *SignalWSController) handlePeers(sess *session) {
	p := sess.presence.Load()
	if p == nil {
		ctl.sendError(sess, "no_room")
		return
	}
	ctl.sendJSON(sess, peersEvent{Type: evPeers, Clients: p.ConnectedClients()})
}
