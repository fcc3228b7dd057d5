package stack

const mapStack = 0
