package p9

// Constructors for every R-message a server needs to build. Decoding
// (DecodeMsg) can see inside the unexported header embedded in each
// message type, but a package on the far side of the server/client
// boundary — the 9P server core in this repository's ninep package —
// cannot write a struct literal naming an unexported field, so it
// builds replies through these functions instead.

func NewRversion(tag uint16, msize uint32, version string) *Rversionmsg {
	return &Rversionmsg{header{tag}, msize, version}
}

func NewRauth(tag uint16, aqid Qid) *Rauthmsg {
	return &Rauthmsg{header{tag}, aqid}
}

func NewRattach(tag uint16, qid Qid) *Rattachmsg {
	return &Rattachmsg{header{tag}, qid}
}

func NewRflush(tag uint16) *Rflushmsg {
	return &Rflushmsg{header{tag}}
}

func NewRwalk(tag uint16, wqid []Qid) *Rwalkmsg {
	return &Rwalkmsg{header{tag}, wqid}
}

func NewRread(tag uint16, data []byte) *Rreadmsg {
	return &Rreadmsg{header{tag}, data}
}

func NewRwrite(tag uint16, count uint32) *Rwritemsg {
	return &Rwritemsg{header{tag}, count}
}

func NewRclunk(tag uint16) *Rclunkmsg {
	return &Rclunkmsg{header{tag}}
}

func NewRremove(tag uint16) *Rremovemsg {
	return &Rremovemsg{header{tag}}
}

func NewRstatfs(tag uint16, s Statfs) *Rstatfsmsg {
	return &Rstatfsmsg{header{tag}, s}
}

func NewRlopen(tag uint16, qid Qid, iounit uint32) *Rlopenmsg {
	return &Rlopenmsg{header{tag}, qid, iounit}
}

func NewRlcreate(tag uint16, qid Qid, iounit uint32) *Rlcreatemsg {
	return &Rlcreatemsg{header{tag}, qid, iounit}
}

func NewRsymlink(tag uint16, qid Qid) *Rsymlinkmsg {
	return &Rsymlinkmsg{header{tag}, qid}
}

func NewRmknod(tag uint16, qid Qid) *Rmknodmsg {
	return &Rmknodmsg{header{tag}, qid}
}

func NewRrename(tag uint16) *Rrenamemsg {
	return &Rrenamemsg{header{tag}}
}

func NewRreadlink(tag uint16, target string) *Rreadlinkmsg {
	return &Rreadlinkmsg{header{tag}, target}
}

func NewRgetattr(tag uint16, stat Stat) *Rgetattrmsg {
	return &Rgetattrmsg{header{tag}, stat}
}

func NewRsetattr(tag uint16) *Rsetattrmsg {
	return &Rsetattrmsg{header{tag}}
}

func NewRxattrwalk(tag uint16, size uint64) *Rxattrwalkmsg {
	return &Rxattrwalkmsg{header{tag}, size}
}

func NewRxattrcreate(tag uint16) *Rxattrcreatemsg {
	return &Rxattrcreatemsg{header{tag}}
}

func NewRreaddir(tag uint16, entries []DirEntry) *Rreaddirmsg {
	return &Rreaddirmsg{header{tag}, entries}
}

func NewRfsync(tag uint16) *Rfsyncmsg {
	return &Rfsyncmsg{header{tag}}
}

func NewRlock(tag uint16, status uint8) *Rlockmsg {
	return &Rlockmsg{header{tag}, status}
}

func NewRgetlock(tag uint16, lock Flock) *Rgetlockmsg {
	return &Rgetlockmsg{header{tag}, lock}
}

func NewRlink(tag uint16) *Rlinkmsg {
	return &Rlinkmsg{header{tag}}
}

func NewRmkdir(tag uint16, qid Qid) *Rmkdirmsg {
	return &Rmkdirmsg{header{tag}, qid}
}

func NewRrenameat(tag uint16) *Rrenameatmsg {
	return &Rrenameatmsg{header{tag}}
}

func NewRunlinkat(tag uint16) *Runlinkatmsg {
	return &Runlinkatmsg{header{tag}}
}
